package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/logging"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
	"github.com/dmitrijs2005/sealvault/internal/server/services"
	"google.golang.org/grpc"
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

// envelope allowance on top of the largest accepted plaintext
const msgOverhead = 64 * 1024

type GRPCServer struct {
	pb.UnimplementedRecordServiceServer
	address        string
	lifecycle      lifecycle
	logger         logging.Logger
	maxMessageSize int
}

func NewGRPCServer(a string, l logging.Logger, lc lifecycle, maxMessageSize int) *GRPCServer {
	return &GRPCServer{
		address:        a,
		logger:         l.With("module", "grpc_server"),
		lifecycle:      lc,
		maxMessageSize: maxMessageSize,
	}
}

// newServer builds the grpc.Server with interceptors and the service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.sessionTokenInterceptor),
	}
	if s.maxMessageSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxMessageSize+msgOverhead))
	}

	srv := grpc.NewServer(opts...)
	pb.RegisterRecordServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			srv.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
