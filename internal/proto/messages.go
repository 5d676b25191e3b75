package proto

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct field names shared by server and client.
const (
	FieldID                 = "id"
	FieldRecordID           = "record_id"
	FieldCiphertext         = "ciphertext"
	FieldNonce              = "nonce"
	FieldSignature          = "signature"
	FieldCandidateSignature = "candidate_signature"
	FieldCreatedAt          = "created_at"
	FieldScheme             = "scheme"
	FieldPublicKeyPEM       = "public_key_pem"
)

var b64 = base64.StdEncoding

// Record is the wire view of a stored record. Binary fields travel base64
// encoded and timestamps as RFC 3339.
type Record struct {
	ID         string
	Ciphertext []byte
	Nonce      []byte
	Signature  []byte
	CreatedAt  time.Time
}

// SubmitReply answers Submit.
type SubmitReply struct {
	RecordID  string
	Signature []byte
	CreatedAt time.Time
}

// CandidateRequest carries a candidate signature for Verify and SetCandidate.
type CandidateRequest struct {
	RecordID  string
	Signature []byte
}

// PublicKeyReply answers PublicKey.
type PublicKeyReply struct {
	Scheme       string
	PublicKeyPEM string
}

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }

func bin(b []byte) *structpb.Value { return structpb.NewStringValue(b64.EncodeToString(b)) }

func ts(t time.Time) *structpb.Value { return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano)) }

// fields reads typed values out of a Struct, remembering the first error.
type fields struct {
	s   *structpb.Struct
	err error
}

func (f *fields) str(name string) string {
	if f.err != nil {
		return ""
	}
	v, ok := f.s.GetFields()[name]
	if !ok {
		f.err = fmt.Errorf("%w: field %q is missing", common.ErrValidation, name)
		return ""
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		f.err = fmt.Errorf("%w: field %q is not a string", common.ErrValidation, name)
		return ""
	}
	return sv.StringValue
}

func (f *fields) bin(name string) []byte {
	s := f.str(name)
	if f.err != nil {
		return nil
	}
	b, err := b64.DecodeString(s)
	if err != nil {
		f.err = fmt.Errorf("%w: field %q is not base64: %v", common.ErrValidation, name, err)
		return nil
	}
	return b
}

// candidate reads a candidate signature. Any string is a candidate; one
// that is not base64 is taken as raw bytes and simply fails to verify.
func (f *fields) candidate(name string) []byte {
	s := f.str(name)
	if f.err != nil {
		return nil
	}
	return DecodeCandidate(s)
}

// DecodeCandidate returns the base64 decoding of s, or s itself when it is
// not base64.
func DecodeCandidate(s string) []byte {
	if b, err := b64.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}

func (f *fields) ts(name string) time.Time {
	s := f.str(name)
	if f.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		f.err = fmt.Errorf("%w: field %q is not a timestamp: %v", common.ErrValidation, name, err)
	}
	return t
}

func (r *Record) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:         str(r.ID),
		FieldCiphertext: bin(r.Ciphertext),
		FieldNonce:      bin(r.Nonce),
		FieldSignature:  bin(r.Signature),
		FieldCreatedAt:  ts(r.CreatedAt),
	}}
}

func RecordFromStruct(s *structpb.Struct) (*Record, error) {
	f := &fields{s: s}
	r := &Record{
		ID:         f.str(FieldID),
		Ciphertext: f.bin(FieldCiphertext),
		Nonce:      f.bin(FieldNonce),
		Signature:  f.bin(FieldSignature),
		CreatedAt:  f.ts(FieldCreatedAt),
	}
	if f.err != nil {
		return nil, f.err
	}
	return r, nil
}

// RecordsToList packs records into a ListValue of Structs.
func RecordsToList(recs []*Record) *structpb.ListValue {
	l := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(recs))}
	for _, r := range recs {
		l.Values = append(l.Values, structpb.NewStructValue(r.ToStruct()))
	}
	return l
}

func RecordsFromList(l *structpb.ListValue) ([]*Record, error) {
	out := make([]*Record, 0, len(l.GetValues()))
	for i, v := range l.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%w: list item %d is not a struct", common.ErrValidation, i)
		}
		r, err := RecordFromStruct(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (r *SubmitReply) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldRecordID:  str(r.RecordID),
		FieldSignature: bin(r.Signature),
		FieldCreatedAt: ts(r.CreatedAt),
	}}
}

func SubmitReplyFromStruct(s *structpb.Struct) (*SubmitReply, error) {
	f := &fields{s: s}
	r := &SubmitReply{
		RecordID:  f.str(FieldRecordID),
		Signature: f.bin(FieldSignature),
		CreatedAt: f.ts(FieldCreatedAt),
	}
	if f.err != nil {
		return nil, f.err
	}
	return r, nil
}

func (r *CandidateRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldRecordID:           str(r.RecordID),
		FieldCandidateSignature: bin(r.Signature),
	}}
}

func CandidateRequestFromStruct(s *structpb.Struct) (*CandidateRequest, error) {
	f := &fields{s: s}
	r := &CandidateRequest{
		RecordID:  f.str(FieldRecordID),
		Signature: f.candidate(FieldCandidateSignature),
	}
	if f.err != nil {
		return nil, f.err
	}
	return r, nil
}

func (r *PublicKeyReply) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldScheme:       str(r.Scheme),
		FieldPublicKeyPEM: str(r.PublicKeyPEM),
	}}
}

func PublicKeyReplyFromStruct(s *structpb.Struct) (*PublicKeyReply, error) {
	f := &fields{s: s}
	r := &PublicKeyReply{
		Scheme:       f.str(FieldScheme),
		PublicKeyPEM: f.str(FieldPublicKeyPEM),
	}
	if f.err != nil {
		return nil, f.err
	}
	return r, nil
}
