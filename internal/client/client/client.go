package client

import (
	"context"

	pb "github.com/dmitrijs2005/sealvault/internal/proto"
)

type Client interface {
	Close() error
	OpenSession(ctx context.Context) error
	Submit(ctx context.Context, message []byte) (*pb.SubmitReply, error)
	ListRecords(ctx context.Context) ([]*pb.Record, error)
	Verify(ctx context.Context, recordID string, candidate []byte) (bool, error)
	SetCandidate(ctx context.Context, recordID string, candidate []byte) (string, error)
	Reveal(ctx context.Context, recordID string) ([]byte, error)
	PublicKey(ctx context.Context) (*pb.PublicKeyReply, error)
}
