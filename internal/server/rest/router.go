// Package rest exposes the record lifecycle over HTTP with gin.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/logging"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
	"github.com/dmitrijs2005/sealvault/internal/server/services"
	"github.com/gin-gonic/gin"
)

// lifecycle is the subset of services.LifecycleService the transport uses.
type lifecycle interface {
	OpenSession(ctx context.Context) (string, error)
	Authenticate(token string) (string, error)
	Submit(ctx context.Context, plaintext []byte) (*services.SubmitResult, error)
	List(ctx context.Context) ([]*models.Record, error)
	ReVerify(ctx context.Context, sessionID, recordID string, candidate []byte) (services.Outcome, error)
	SetCandidate(ctx context.Context, sessionID, recordID string, candidate []byte) (services.State, error)
	Reveal(ctx context.Context, sessionID, recordID string) ([]byte, error)
	PublicKey() services.PublicKeyInfo
}

// JSON framing allowance on top of the largest accepted plaintext
const bodyOverhead = 64 * 1024

type Server struct {
	address   string
	engine    *gin.Engine
	lifecycle lifecycle
	logger    logging.Logger
}

func NewServer(addr string, l logging.Logger, lc lifecycle, maxMessageSize int) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		address:   addr,
		engine:    gin.New(),
		lifecycle: lc,
		logger:    l.With("module", "http_server"),
	}

	// JSON carries binary as base64, which grows it by a third
	var bodyLimit int64
	if maxMessageSize > 0 {
		bodyLimit = int64(maxMessageSize)*4/3 + bodyOverhead
	}

	s.engine.Use(s.recoverPanic(), s.logRequest(), limitBody(bodyLimit))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "SealVault server is running")
	})

	api := s.engine.Group("/api")
	api.POST("/session", s.openSession)
	api.POST("/submit", s.submit)
	api.GET("/records", s.listRecords)
	api.GET("/public-key", s.publicKey)

	session := api.Group("/")
	session.Use(s.requireSession())
	{
		session.POST("/verify", s.verify)
		session.POST("/candidate", s.setCandidate)
		session.POST("/reveal", s.reveal)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(context.Background(), "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
