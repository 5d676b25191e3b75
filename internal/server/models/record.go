package models

import (
	"bytes"
	"time"
)

// Record is one signed artifact of the ledger. All fields are fixed at
// insertion; the ledger offers no way to change them afterwards.
type Record struct {
	// ID is assigned by the store at insertion.
	ID string
	// Ciphertext is the vault-encrypted message.
	Ciphertext []byte
	// Nonce is the per-record AEAD nonce used for Ciphertext.
	Nonce []byte
	// Signature is the authority's signature over Ciphertext.
	Signature []byte
	// CreatedAt is set by the store at insertion.
	CreatedAt time.Time
}

// Clone returns a deep copy of r, so ledger internals are never shared with
// callers.
func (r *Record) Clone() *Record {
	return &Record{
		ID:         r.ID,
		Ciphertext: bytes.Clone(r.Ciphertext),
		Nonce:      bytes.Clone(r.Nonce),
		Signature:  bytes.Clone(r.Signature),
		CreatedAt:  r.CreatedAt,
	}
}
