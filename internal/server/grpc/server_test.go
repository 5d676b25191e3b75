package grpc

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	vaultclient "github.com/dmitrijs2005/sealvault/internal/client/client"
	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/cryptox"
	"github.com/dmitrijs2005/sealvault/internal/logging"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"github.com/dmitrijs2005/sealvault/internal/server/config"
	"github.com/dmitrijs2005/sealvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/sealvault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newLifecycle(t *testing.T) *services.LifecycleService {
	t.Helper()
	return newLifecycleSized(t, 1024)
}

func newLifecycleSized(t *testing.T, maxMessageSize int) *services.LifecycleService {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MaxMessageSize = maxMessageSize

	v, err := cryptox.NewVault(cryptox.CipherXChaCha20Poly1305)
	require.NoError(t, err)
	a, err := cryptox.NewAuthority(cryptox.SchemeEd25519)
	require.NoError(t, err)
	return services.NewLifecycleService(v, a, records.NewMemoryRepository(), discardLogger(), cfg)
}

// serveBufconn serves s over an in-memory listener until the test ends.
func serveBufconn(t *testing.T, s *GRPCServer) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

// startBufconn serves s over an in-memory listener and returns a client.
func startBufconn(t *testing.T, s *GRPCServer) pb.RecordServiceClient {
	t.Helper()
	dialer := serveBufconn(t, s)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		dialer,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })
	return pb.NewRecordServiceClient(conn)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.SessionTokenHeaderName, token)
}

func TestRecordService_Lifecycle(t *testing.T) {
	client := startBufconn(t, NewGRPCServer("bufnet", discardLogger(), newLifecycle(t), 1024))
	ctx := context.Background()

	tok, err := client.OpenSession(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	sctx := withToken(ctx, tok.GetValue())

	sres, err := client.Submit(ctx, wrapperspb.Bytes([]byte("hello")))
	require.NoError(t, err)
	submitted, err := pb.SubmitReplyFromStruct(sres)
	require.NoError(t, err)

	lres, err := client.ListRecords(ctx, wrapperspb.UInt64(0))
	require.NoError(t, err)
	list, err := pb.RecordsFromList(lres)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, submitted.RecordID, list[0].ID)
	assert.Equal(t, submitted.Signature, list[0].Signature)
	assert.NotEqual(t, []byte("hello"), list[0].Ciphertext)

	good := (&pb.CandidateRequest{RecordID: submitted.RecordID, Signature: submitted.Signature}).ToStruct()
	ok, err := client.Verify(sctx, good)
	require.NoError(t, err)
	assert.True(t, ok.GetValue())

	pt, err := client.Reveal(sctx, wrapperspb.String(submitted.RecordID))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt.GetValue())

	bad := (&pb.CandidateRequest{RecordID: submitted.RecordID, Signature: []byte("garbage-signature")}).ToStruct()
	st, err := client.SetCandidate(sctx, bad)
	require.NoError(t, err)
	assert.Equal(t, "checked:unknown", st.GetValue())

	ok, err = client.Verify(sctx, bad)
	require.NoError(t, err)
	assert.False(t, ok.GetValue())

	_, err = client.Reveal(sctx, wrapperspb.String(submitted.RecordID))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestRecordService_TextCandidateFailsVerification(t *testing.T) {
	client := startBufconn(t, NewGRPCServer("bufnet", discardLogger(), newLifecycle(t), 1024))
	ctx := context.Background()

	tok, err := client.OpenSession(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	sctx := withToken(ctx, tok.GetValue())

	sres, err := client.Submit(ctx, wrapperspb.Bytes([]byte("secret")))
	require.NoError(t, err)
	submitted, err := pb.SubmitReplyFromStruct(sres)
	require.NoError(t, err)

	good := (&pb.CandidateRequest{RecordID: submitted.RecordID, Signature: submitted.Signature}).ToStruct()
	ok, err := client.Verify(sctx, good)
	require.NoError(t, err)
	require.True(t, ok.GetValue())

	text := &structpb.Struct{Fields: map[string]*structpb.Value{
		pb.FieldRecordID:           structpb.NewStringValue(submitted.RecordID),
		pb.FieldCandidateSignature: structpb.NewStringValue("garbage-signature"),
	}}
	ok, err = client.Verify(sctx, text)
	require.NoError(t, err)
	assert.False(t, ok.GetValue())

	_, err = client.Reveal(sctx, wrapperspb.String(submitted.RecordID))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestRecordService_ListRecordsPagesLargeLedger(t *testing.T) {
	const size = 1 << 20
	srv := NewGRPCServer("bufnet", discardLogger(), newLifecycleSized(t, size), size)
	dialer := serveBufconn(t, srv)

	c, err := vaultclient.NewSealVaultClient("passthrough:///bufnet", dialer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	var ids []string
	for i := range 4 {
		msg := bytes.Repeat([]byte{byte('a' + i)}, size)
		res, err := c.Submit(ctx, msg)
		require.NoError(t, err)
		ids = append(ids, res.RecordID)
	}

	recs, err := c.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, len(ids))
	for i, r := range recs {
		assert.Equal(t, ids[i], r.ID)
	}

	// a raw page stays under the default receive limit
	conn, err := grpc.NewClient("passthrough:///bufnet", dialer, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	raw := pb.NewRecordServiceClient(conn)
	lres, err := raw.ListRecords(ctx, wrapperspb.UInt64(0))
	require.NoError(t, err)
	page, err := pb.RecordsFromList(lres)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	lres, err = raw.ListRecords(ctx, wrapperspb.UInt64(uint64(len(ids))))
	require.NoError(t, err)
	page, err = pb.RecordsFromList(lres)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestRecordService_ListRecordsPacksSmallRecords(t *testing.T) {
	raw := startBufconn(t, NewGRPCServer("bufnet", discardLogger(), newLifecycle(t), 1024))
	ctx := context.Background()

	for range 3 {
		_, err := raw.Submit(ctx, wrapperspb.Bytes([]byte("small")))
		require.NoError(t, err)
	}

	lres, err := raw.ListRecords(ctx, wrapperspb.UInt64(1))
	require.NoError(t, err)
	page, err := pb.RecordsFromList(lres)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestRecordService_Faults(t *testing.T) {
	client := startBufconn(t, NewGRPCServer("bufnet", discardLogger(), newLifecycle(t), 1024))
	ctx := context.Background()

	_, err := client.Submit(ctx, wrapperspb.Bytes(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Submit(ctx, wrapperspb.Bytes(make([]byte, 2048)))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Reveal(ctx, wrapperspb.String("x"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.Reveal(withToken(ctx, "forged"), wrapperspb.String("x"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := client.OpenSession(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	_, err = client.Reveal(withToken(ctx, tok.GetValue()), wrapperspb.String("missing"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRecordService_PublicKey(t *testing.T) {
	client := startBufconn(t, NewGRPCServer("bufnet", discardLogger(), newLifecycle(t), 0))

	res, err := client.PublicKey(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	pk, err := pb.PublicKeyReplyFromStruct(res)
	require.NoError(t, err)
	assert.Equal(t, "ed25519", pk.Scheme)
	assert.Contains(t, pk.PublicKeyPEM, "BEGIN PUBLIC KEY")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", discardLogger(), newLifecycle(t), 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", discardLogger(), newLifecycle(t), 0)
	assert.Error(t, srv.Run(context.Background()))
}
