package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/sealvault/internal/common"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.RecordServiceClient

	mu           sync.Mutex
	sessionToken string
}

// methods that need a session token
var sessionMethods = map[string]bool{
	pb.RecordService_Verify_FullMethodName:       true,
	pb.RecordService_SetCandidate_FullMethodName: true,
	pb.RecordService_Reveal_FullMethodName:       true,
}

func withSessionToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.SessionTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionToken
}

func (s *GRPCClient) setToken(t string) {
	s.mu.Lock()
	s.sessionToken = t
	s.mu.Unlock()
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && strings.Contains(st.Message(), common.ErrTokenExpired.Error())
}

// sessionTokenInterceptor attaches the session token to session-bound calls.
// A missing token opens a session first; an expired one opens a new session
// and retries once. Record states of the expired session are not carried
// over, so records must be verified again.
func (s *GRPCClient) sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if !sessionMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	if s.token() == "" {
		if err := s.OpenSession(ctx); err != nil {
			return err
		}
	}

	err := invoker(withSessionToken(ctx, s.token()), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	if err := s.OpenSession(ctx); err != nil {
		return err
	}

	// session renewed, retrying with the new token
	return invoker(withSessionToken(ctx, s.token()), method, req, reply, cc, opts...)
}

// maxRecvMsgSize lets a single record larger than the gRPC default of 4 MiB
// through when the server accepts big messages.
const maxRecvMsgSize = 64 << 20

func NewSealVaultClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient(opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.sessionTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewRecordServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) OpenSession(ctx context.Context) error {
	resp, err := s.client.OpenSession(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	s.setToken(resp.GetValue())
	return nil
}

func (s *GRPCClient) Submit(ctx context.Context, message []byte) (*pb.SubmitReply, error) {
	resp, err := s.client.Submit(ctx, wrapperspb.Bytes(message))
	if err != nil {
		return nil, s.mapError(err)
	}
	return pb.SubmitReplyFromStruct(resp)
}

// ListRecords fetches the whole ledger page by page. The ledger is append
// only, so offsets stay stable between pages.
func (s *GRPCClient) ListRecords(ctx context.Context) ([]*pb.Record, error) {
	all := make([]*pb.Record, 0)
	for {
		resp, err := s.client.ListRecords(ctx, wrapperspb.UInt64(uint64(len(all))))
		if err != nil {
			return nil, s.mapError(err)
		}
		page, err := pb.RecordsFromList(resp)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
	}
}

func (s *GRPCClient) Verify(ctx context.Context, recordID string, candidate []byte) (bool, error) {
	req := &pb.CandidateRequest{RecordID: recordID, Signature: candidate}

	resp, err := s.client.Verify(ctx, req.ToStruct())
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.GetValue(), nil
}

func (s *GRPCClient) SetCandidate(ctx context.Context, recordID string, candidate []byte) (string, error) {
	req := &pb.CandidateRequest{RecordID: recordID, Signature: candidate}

	resp, err := s.client.SetCandidate(ctx, req.ToStruct())
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.GetValue(), nil
}

func (s *GRPCClient) Reveal(ctx context.Context, recordID string) ([]byte, error) {
	resp, err := s.client.Reveal(ctx, wrapperspb.String(recordID))
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.GetValue(), nil
}

func (s *GRPCClient) PublicKey(ctx context.Context) (*pb.PublicKeyReply, error) {
	resp, err := s.client.PublicKey(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return pb.PublicKeyReplyFromStruct(resp)
}

// codeErrors maps status codes back to fault sentinels. ResourceExhausted is
// an oversized request.
var codeErrors = map[codes.Code]error{
	codes.InvalidArgument:    common.ErrValidation,
	codes.Internal:           common.ErrCrypto,
	codes.DataLoss:           common.ErrIntegrity,
	codes.FailedPrecondition: common.ErrPolicy,
	codes.NotFound:           common.ErrorNotFound,
	codes.ResourceExhausted:  common.ErrValidation,
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	}
	if sentinel, ok := codeErrors[st.Code()]; ok {
		return fmt.Errorf("%w (%s)", sentinel, st.Message())
	}
	return fmt.Errorf("%w (%s: %s)", common.ErrorInternal, st.Code(), st.Message())
}
