package grpc

import (
	"context"
	"encoding/base64"

	"github.com/dmitrijs2005/sealvault/internal/common"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
	"github.com/dmitrijs2005/sealvault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var kindCodes = map[string]codes.Code{
	common.KindValidation:      codes.InvalidArgument,
	common.KindCrypto:          codes.Internal,
	common.KindIntegrity:       codes.DataLoss,
	common.KindPolicy:          codes.FailedPrecondition,
	common.KindNotFound:        codes.NotFound,
	common.KindUnauthenticated: codes.Unauthenticated,
}

// toStatus maps a service error to a gRPC status carrying its fault kind.
func toStatus(err error) error {
	kind := common.Kind(err)
	code, ok := kindCodes[kind]
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Errorf(code, "%s: %v", kind, err)
}

func (s *GRPCServer) OpenSession(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	token, err := s.lifecycle.OpenSession(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(token), nil
}

func (s *GRPCServer) Submit(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	res, err := s.lifecycle.Submit(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	reply := &pb.SubmitReply{RecordID: res.RecordID, Signature: res.Signature, CreatedAt: res.CreatedAt}
	return reply.ToStruct(), nil
}

// listPageBytes bounds the encoded size of one ListRecords page so that it
// stays under the default 4 MiB receive limit of gRPC clients.
const listPageBytes = 2 << 20

// recordWireSize estimates the size of r as a Struct on the wire.
func recordWireSize(r *models.Record) int {
	enc := base64.StdEncoding
	return enc.EncodedLen(len(r.Ciphertext)) + enc.EncodedLen(len(r.Nonce)) + enc.EncodedLen(len(r.Signature)) + 256
}

// ListRecords returns the ledger page starting at req. A page holds at least
// one record and otherwise stops before exceeding listPageBytes.
func (s *GRPCServer) ListRecords(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.ListValue, error) {
	list, err := s.lifecycle.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	offset := req.GetValue()
	if offset >= uint64(len(list)) {
		return pb.RecordsToList(nil), nil
	}

	var (
		out  []*pb.Record
		size int
	)
	for _, r := range list[offset:] {
		n := recordWireSize(r)
		if len(out) > 0 && size+n > listPageBytes {
			break
		}
		size += n
		out = append(out, &pb.Record{
			ID:         r.ID,
			Ciphertext: r.Ciphertext,
			Nonce:      r.Nonce,
			Signature:  r.Signature,
			CreatedAt:  r.CreatedAt,
		})
	}
	return pb.RecordsToList(out), nil
}

func (s *GRPCServer) Verify(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	sid, ok := sessionIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	cr, err := pb.CandidateRequestFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}

	outcome, err := s.lifecycle.ReVerify(ctx, sid, cr.RecordID, cr.Signature)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(outcome == services.Valid), nil
}

func (s *GRPCServer) SetCandidate(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	sid, ok := sessionIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	cr, err := pb.CandidateRequestFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}

	st, err := s.lifecycle.SetCandidate(ctx, sid, cr.RecordID, cr.Signature)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(st.Name()), nil
}

func (s *GRPCServer) Reveal(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	sid, ok := sessionIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}

	pt, err := s.lifecycle.Reveal(ctx, sid, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(pt), nil
}

func (s *GRPCServer) PublicKey(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	pk := s.lifecycle.PublicKey()
	reply := &pb.PublicKeyReply{Scheme: pk.Scheme, PublicKeyPEM: pk.PublicKeyPEM}
	return reply.ToStruct(), nil
}
