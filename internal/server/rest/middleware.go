package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/logging"
	"github.com/gin-gonic/gin"
)

const sessionIDKey = "sessionID"

func (s *Server) logRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if kind := c.GetString("fault_kind"); kind != "" {
			args = append(args, "kind", kind)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error(c.Request.Context(), "HTTP request", args...)
		case c.Writer.Status() >= http.StatusBadRequest:
			s.logger.Warn(c.Request.Context(), "HTTP request", args...)
		default:
			s.logger.Info(c.Request.Context(), "HTTP request", args...)
		}
	}
}

func (s *Server) recoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(c.Request.Context(), "panic in handler", "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error", Kind: common.KindInternal})
			}
		}()
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(common.SessionTokenHTTPHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing session token", Kind: common.KindUnauthenticated})
			return
		}

		sessionID, err := s.lifecycle.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: err.Error(), Kind: common.KindUnauthenticated})
			return
		}

		c.Set(sessionIDKey, sessionID)
		c.Request = c.Request.WithContext(logging.ContextWith(c.Request.Context(), "session_id", sessionID))
		c.Next()
	}
}
