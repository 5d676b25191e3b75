package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/common"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

/*************
 * Fake pb client
 *************/

type fakePB struct {
	sessions int
	token    string

	lastSubmit    []byte
	lastCandidate *structpb.Struct
	lastReveal    string

	submitResp *structpb.Struct
	listRecs    []*pb.Record
	listPage    int
	listOffsets []uint64
	verifyResp bool
	stateResp  string
	revealResp []byte
	pkResp     *structpb.Struct
	err        error
}

func (f *fakePB) OpenSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	f.sessions++
	if f.err != nil {
		return nil, f.err
	}
	return wrapperspb.String(f.token), nil
}
func (f *fakePB) Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	f.lastSubmit = in.GetValue()
	return f.submitResp, f.err
}
func (f *fakePB) ListRecords(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	if f.err != nil {
		return nil, f.err
	}
	off := in.GetValue()
	f.listOffsets = append(f.listOffsets, off)
	if off >= uint64(len(f.listRecs)) {
		return pb.RecordsToList(nil), nil
	}
	end := min(int(off)+max(f.listPage, 1), len(f.listRecs))
	return pb.RecordsToList(f.listRecs[off:end]), nil
}
func (f *fakePB) Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	f.lastCandidate = in
	if f.err != nil {
		return nil, f.err
	}
	return wrapperspb.Bool(f.verifyResp), nil
}
func (f *fakePB) SetCandidate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	f.lastCandidate = in
	if f.err != nil {
		return nil, f.err
	}
	return wrapperspb.String(f.stateResp), nil
}
func (f *fakePB) Reveal(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	f.lastReveal = in.GetValue()
	if f.err != nil {
		return nil, f.err
	}
	return wrapperspb.Bytes(f.revealResp), nil
}
func (f *fakePB) PublicKey(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.pkResp, f.err
}

func newClient(f *fakePB) *GRPCClient {
	return &GRPCClient{client: f}
}

func tokenFrom(ctx context.Context) string {
	md, _ := metadata.FromOutgoingContext(ctx)
	if v := md.Get(common.SessionTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

/*************
 * Interceptor
 *************/

func TestInterceptor_OpenMethodsCarryNoToken(t *testing.T) {
	f := &fakePB{token: "t1"}
	c := newClient(f)

	var seen string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		seen = tokenFrom(ctx)
		return nil
	}

	require.NoError(t, c.sessionTokenInterceptor(context.Background(), pb.RecordService_Submit_FullMethodName, nil, nil, nil, invoker))
	assert.Empty(t, seen)
	assert.Equal(t, 0, f.sessions)
}

func TestInterceptor_OpensSessionLazily(t *testing.T) {
	f := &fakePB{token: "t1"}
	c := newClient(f)

	var seen string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		seen = tokenFrom(ctx)
		return nil
	}

	require.NoError(t, c.sessionTokenInterceptor(context.Background(), pb.RecordService_Reveal_FullMethodName, nil, nil, nil, invoker))
	assert.Equal(t, "t1", seen)
	assert.Equal(t, 1, f.sessions)

	require.NoError(t, c.sessionTokenInterceptor(context.Background(), pb.RecordService_Verify_FullMethodName, nil, nil, nil, invoker))
	assert.Equal(t, 1, f.sessions)
}

func TestInterceptor_RenewsExpiredSessionAndRetries(t *testing.T) {
	f := &fakePB{token: "new"}
	c := newClient(f)
	c.setToken("old")

	calls := 0
	var tokens []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		tokens = append(tokens, tokenFrom(ctx))
		if calls == 1 {
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil
	}

	err := c.sessionTokenInterceptor(context.Background(), pb.RecordService_Verify_FullMethodName, nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, tokens)
	assert.Equal(t, 1, f.sessions)
}

func TestInterceptor_OtherUnauthenticatedIsReturned(t *testing.T) {
	f := &fakePB{token: "new"}
	c := newClient(f)
	c.setToken("old")

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, "invalid token")
	}

	err := c.sessionTokenInterceptor(context.Background(), pb.RecordService_Reveal_FullMethodName, nil, nil, nil, invoker)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, 0, f.sessions)
}

func TestInterceptor_SessionOpenFailure(t *testing.T) {
	f := &fakePB{err: status.Error(codes.Unavailable, "down")}
	c := newClient(f)

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		t.Fatal("must not be invoked")
		return nil
	}

	err := c.sessionTokenInterceptor(context.Background(), pb.RecordService_Reveal_FullMethodName, nil, nil, nil, invoker)
	assert.ErrorIs(t, err, ErrUnavailable)
}

/*************
 * Calls
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	cases := []struct {
		code codes.Code
		want error
	}{
		{codes.Unauthenticated, ErrUnauthorized},
		{codes.Unavailable, ErrUnavailable},
		{codes.DeadlineExceeded, ErrUnavailable},
		{codes.InvalidArgument, common.ErrValidation},
		{codes.Internal, common.ErrCrypto},
		{codes.DataLoss, common.ErrIntegrity},
		{codes.FailedPrecondition, common.ErrPolicy},
		{codes.NotFound, common.ErrorNotFound},
		{codes.ResourceExhausted, common.ErrValidation},
		{codes.Unimplemented, common.ErrorInternal},
		{codes.Unknown, common.ErrorInternal},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, c.mapError(status.Error(tc.code, "x")), tc.want, tc.code.String())
	}

	assert.NoError(t, c.mapError(nil))

	err := c.mapError(errors.New("plain"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Contains(t, err.Error(), "plain")

	err = c.mapError(status.Error(codes.Unimplemented, "unknown method Foo"))
	assert.Equal(t, common.KindInternal, common.Kind(err))
	assert.Equal(t, "internal error (Unimplemented: unknown method Foo)", err.Error())
	assert.NotContains(t, err.Error(), "rpc error")
}

func TestSubmit_OverReceiveLimitIsValidation(t *testing.T) {
	msg := "grpc: received message larger than max (2000000 vs. 1114112)"
	c := newClient(&fakePB{err: status.Error(codes.ResourceExhausted, msg)})
	_, err := c.Submit(context.Background(), make([]byte, 2000000))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, common.KindValidation, common.Kind(err))
	assert.Contains(t, err.Error(), msg)
}

func TestSubmit(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	f := &fakePB{submitResp: (&pb.SubmitReply{RecordID: "r1", Signature: []byte("sig"), CreatedAt: now}).ToStruct()}
	c := newClient(f)

	res, err := c.Submit(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), f.lastSubmit)
	assert.Equal(t, "r1", res.RecordID)
	assert.Equal(t, []byte("sig"), res.Signature)
}

func TestSubmit_MapsError(t *testing.T) {
	c := newClient(&fakePB{err: status.Error(codes.InvalidArgument, "validation: message is empty")})
	_, err := c.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestListRecords(t *testing.T) {
	list := []*pb.Record{{ID: "a", Ciphertext: []byte("c"), Nonce: []byte("n"), Signature: []byte("s")}}
	c := newClient(&fakePB{listRecs: list, listPage: 10})

	recs, err := c.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)
}

func TestListRecords_FollowsPages(t *testing.T) {
	var list []*pb.Record
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		list = append(list, &pb.Record{ID: id, Ciphertext: []byte("c"), Nonce: []byte("n"), Signature: []byte("s")})
	}
	f := &fakePB{listRecs: list, listPage: 2}
	c := newClient(f)

	recs, err := c.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 5)
	for i, r := range recs {
		assert.Equal(t, list[i].ID, r.ID)
	}
	assert.Equal(t, []uint64{0, 2, 4, 5}, f.listOffsets)
}

func TestListRecords_EmptyLedger(t *testing.T) {
	c := newClient(&fakePB{})
	recs, err := c.ListRecords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestListRecords_Unavailable(t *testing.T) {
	c := newClient(&fakePB{err: status.Error(codes.Unavailable, "down")})
	recs, err := c.ListRecords(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, recs)
}

func TestVerifyAndSetCandidate(t *testing.T) {
	f := &fakePB{verifyResp: true, stateResp: "checked:unknown"}
	c := newClient(f)

	ok, err := c.Verify(context.Background(), "r1", []byte("sig"))
	require.NoError(t, err)
	assert.True(t, ok)
	cr, err := pb.CandidateRequestFromStruct(f.lastCandidate)
	require.NoError(t, err)
	assert.Equal(t, "r1", cr.RecordID)
	assert.Equal(t, []byte("sig"), cr.Signature)

	st, err := c.SetCandidate(context.Background(), "r1", []byte("edited"))
	require.NoError(t, err)
	assert.Equal(t, "checked:unknown", st)
}

func TestReveal(t *testing.T) {
	f := &fakePB{revealResp: []byte("hello")}
	c := newClient(f)

	pt, err := c.Reveal(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", f.lastReveal)
	assert.Equal(t, []byte("hello"), pt)
}

func TestReveal_PolicyFault(t *testing.T) {
	c := newClient(&fakePB{err: status.Error(codes.FailedPrecondition, "policy: verification required")})
	_, err := c.Reveal(context.Background(), "r1")
	assert.ErrorIs(t, err, common.ErrPolicy)
}

func TestPublicKey(t *testing.T) {
	c := newClient(&fakePB{pkResp: (&pb.PublicKeyReply{Scheme: "ed25519", PublicKeyPEM: "pem"}).ToStruct()})
	pk, err := c.PublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ed25519", pk.Scheme)
}

var _ Client = (*GRPCClient)(nil)
