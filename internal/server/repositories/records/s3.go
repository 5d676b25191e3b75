package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
)

const s3Prefix = "records/"

// s3API is the part of *s3.Client the repository needs.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// seams for testing client construction
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// S3Options describes an S3-compatible endpoint (AWS or MinIO).
type S3Options struct {
	Region       string
	User         string
	Password     string
	BaseEndpoint string
}

// NewS3Client builds an *s3.Client with static credentials and path-style
// addressing, which MinIO requires.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(o.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		opts.BaseEndpoint = aws.String(o.BaseEndpoint)
		opts.UsePathStyle = true
	}), nil
}

// S3Repository stores one JSON object per record under
// records/<seq>-<id>.json. seq is zero padded, so lexical key order is
// insertion order. Objects are written with If-None-Match: * and never
// overwritten.
type S3Repository struct {
	client s3API
	bucket string

	mu      sync.Mutex
	nextSeq int64
	loaded  bool
}

// NewS3Repository returns a repository over the given bucket.
func NewS3Repository(client s3API, bucket string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket}
}

type s3Object struct {
	ID         string    `json:"id"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	Signature  []byte    `json:"signature"`
	CreatedAt  time.Time `json:"created_at"`
}

func objectKey(seq int64, id string) string {
	return fmt.Sprintf("%s%020d-%s.json", s3Prefix, seq, id)
}

// parseKey splits records/<seq>-<id>.json.
func parseKey(key string) (int64, string, bool) {
	name, ok := strings.CutPrefix(key, s3Prefix)
	if !ok {
		return 0, "", false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok {
		return 0, "", false
	}
	seqPart, id, ok := strings.Cut(name, "-")
	if !ok || id == "" {
		return 0, "", false
	}
	seq, err := strconv.ParseInt(seqPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return seq, id, true
}

// keys returns all record object keys in lexical order.
func (r *S3Repository) keys(ctx context.Context) ([]string, error) {
	var keys []string

	p := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(s3Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if _, _, ok := parseKey(*obj.Key); ok {
				keys = append(keys, *obj.Key)
			}
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (r *S3Repository) Insert(ctx context.Context, rec *models.Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		keys, err := r.keys(ctx)
		if err != nil {
			return "", err
		}
		if n := len(keys); n > 0 {
			last, _, _ := parseKey(keys[n-1])
			r.nextSeq = last + 1
		}
		r.loaded = true
	}

	obj := s3Object{
		ID:         newID(),
		Ciphertext: rec.Ciphertext,
		Nonce:      rec.Nonce,
		Signature:  rec.Signature,
		CreatedAt:  now(),
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(objectKey(r.nextSeq, obj.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		// another writer may have taken the sequence number
		r.loaded = false
		return "", fmt.Errorf("put object: %w", err)
	}
	r.nextSeq++

	rec.ID = obj.ID
	rec.CreatedAt = obj.CreatedAt
	return obj.ID, nil
}

func (r *S3Repository) fetch(ctx context.Context, key string) (*models.Record, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	var obj s3Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: object %s: %v", common.ErrIntegrity, key, err)
	}
	return &models.Record{
		ID:         obj.ID,
		Ciphertext: obj.Ciphertext,
		Nonce:      obj.Nonce,
		Signature:  obj.Signature,
		CreatedAt:  obj.CreatedAt,
	}, nil
}

func (r *S3Repository) List(ctx context.Context) ([]*models.Record, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Record, 0, len(keys))
	for _, k := range keys {
		rec, err := r.fetch(ctx, k)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r *S3Repository) Get(ctx context.Context, id string) (*models.Record, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		if _, kid, _ := parseKey(k); kid == id {
			return r.fetch(ctx, k)
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, common.ErrorNotFound)
}
