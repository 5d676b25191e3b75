package grpc

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/logging"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestInterceptor_OpenMethodsSkipToken(t *testing.T) {
	s := NewGRPCServer("", discardLogger(), newLifecycle(t), 0)

	info := &grpc.UnaryServerInfo{FullMethod: pb.RecordService_Submit_FullMethodName}
	called := false
	h := func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	}

	resp, err := s.sessionTokenInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_SessionMethodNeedsToken(t *testing.T) {
	s := NewGRPCServer("", discardLogger(), newLifecycle(t), 0)

	info := &grpc.UnaryServerInfo{FullMethod: pb.RecordService_Reveal_FullMethodName}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler must not be called")
		return nil, nil
	}

	_, err := s.sessionTokenInterceptor(context.Background(), nil, info, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_PutsSessionIDInContext(t *testing.T) {
	lc := newLifecycle(t)
	s := NewGRPCServer("", discardLogger(), lc, 0)

	token, err := lc.OpenSession(context.Background())
	require.NoError(t, err)
	want, err := lc.Authenticate(token)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.SessionTokenHeaderName, token))
	info := &grpc.UnaryServerInfo{FullMethod: pb.RecordService_Verify_FullMethodName}

	var got string
	h := func(ctx context.Context, req any) (any, error) {
		got, _ = sessionIDFromContext(ctx)
		return nil, nil
	}

	_, err = s.sessionTokenInterceptor(ctx, nil, info, h)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInterceptor_SessionIDReachesLogs(t *testing.T) {
	lc := newLifecycle(t)
	s := NewGRPCServer("", discardLogger(), lc, 0)

	token, err := lc.OpenSession(context.Background())
	require.NoError(t, err)
	sid, err := lc.Authenticate(token)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	l := logging.NewZapLogger(zap.New(core))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.SessionTokenHeaderName, token))
	info := &grpc.UnaryServerInfo{FullMethod: pb.RecordService_Reveal_FullMethodName}
	h := func(ctx context.Context, req any) (any, error) {
		l.Info(ctx, "record revealed")
		return nil, nil
	}

	_, err = s.sessionTokenInterceptor(ctx, nil, info, h)
	require.NoError(t, err)
	require.Len(t, logs.All(), 1)
	assert.Equal(t, sid, logs.All()[0].ContextMap()["session_id"])
}
