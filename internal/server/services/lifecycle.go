// Package services contains server-side business logic. This file implements
// LifecycleService, which takes a message through encryption, signing and
// storage, and gates decryption on a successful verification of the
// candidate signature held by the caller's session.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/cryptox"
	"github.com/dmitrijs2005/sealvault/internal/logging"
	"github.com/dmitrijs2005/sealvault/internal/server/auth"
	"github.com/dmitrijs2005/sealvault/internal/server/config"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
	"github.com/dmitrijs2005/sealvault/internal/server/repositories/records"
	"github.com/google/uuid"
)

// Vault is the symmetric cipher used for records at rest.
type Vault interface {
	Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error)
	Decrypt(ciphertext, nonce []byte) ([]byte, error)
}

// Authority signs ciphertexts and exports its public key.
type Authority interface {
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) bool
	Scheme() cryptox.Scheme
	PublicKey() string
}

// Verifier produces a verdict for a candidate signature. An error means no
// verdict could be obtained.
type Verifier interface {
	Verify(ctx context.Context, payload, signature []byte) (bool, error)
}

// authorityVerifier verifies in-process against the signing Authority.
type authorityVerifier struct {
	a Authority
}

func (v authorityVerifier) Verify(ctx context.Context, payload, signature []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return v.a.Verify(payload, signature), nil
}

// SubmitResult describes a newly stored record.
type SubmitResult struct {
	RecordID  string
	Signature []byte
	CreatedAt time.Time
}

// PublicKeyInfo is the authority's public key export.
type PublicKeyInfo struct {
	Scheme       string
	PublicKeyPEM string
}

// Option customises a LifecycleService.
type Option func(*LifecycleService)

// WithVerifier replaces the in-process verifier, e.g. with a remote one.
func WithVerifier(v Verifier) Option {
	return func(s *LifecycleService) { s.verifier = v }
}

// LifecycleService implements Submit, List, ReVerify and Reveal on top of
// the vault, the authority and the record ledger. Per-session state lives in
// memory only.
type LifecycleService struct {
	vault     Vault
	authority Authority
	verifier  Verifier
	records   records.Repository
	logger    logging.Logger

	jwtSecret      []byte
	sessionTTL     time.Duration
	storageTimeout time.Duration
	maxMessageSize int

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// NewLifecycleService wires the service from its collaborators and config.
func NewLifecycleService(v Vault, a Authority, repo records.Repository, l logging.Logger, cfg *config.Config, opts ...Option) *LifecycleService {
	s := &LifecycleService{
		vault:          v,
		authority:      a,
		verifier:       authorityVerifier{a: a},
		records:        repo,
		logger:         l.With("module", "lifecycle"),
		jwtSecret:      []byte(cfg.SecretKey),
		sessionTTL:     cfg.SessionTokenValidityDuration,
		storageTimeout: cfg.StorageTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		sessions:       make(map[string]*session),
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// storageErr maps ledger failures onto the fault taxonomy. Faults the ledger
// already classified pass through; anything else means it was unreachable.
func storageErr(err error) error {
	for _, known := range []error{common.ErrorNotFound, common.ErrCrypto, common.ErrIntegrity} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
}

func (s *LifecycleService) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}

// OpenSession starts a session and returns its token.
func (s *LifecycleService) OpenSession(ctx context.Context) (string, error) {
	id := uuid.NewString()

	token, err := auth.GenerateToken(id, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("error generating session token: %w", err)
	}

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[id] = newSession(s.now())
	s.mu.Unlock()

	s.logger.Info(ctx, "session opened", "session_id", id)
	return token, nil
}

// Authenticate resolves a session token to its session id.
func (s *LifecycleService) Authenticate(token string) (string, error) {
	return auth.GetSessionIDFromToken(token, s.jwtSecret)
}

// pruneLocked drops sessions idle for longer than the token lifetime.
func (s *LifecycleService) pruneLocked() {
	if s.sessionTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-s.sessionTTL)
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			sess.wipe()
			delete(s.sessions, id)
		}
	}
}

// session returns the locked session for id, creating it if the process has
// not seen it yet. The caller must unlock it.
func (s *LifecycleService) session(id string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(s.now())
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	sess.lastSeen = s.now()
	return sess
}

// Submit encrypts plaintext, signs the ciphertext and appends the record.
// Invalid input is rejected before any side effect.
func (s *LifecycleService) Submit(ctx context.Context, plaintext []byte) (*SubmitResult, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: message is empty", common.ErrValidation)
	}
	if s.maxMessageSize > 0 && len(plaintext) > s.maxMessageSize {
		return nil, fmt.Errorf("%w: message is %d bytes, limit is %d", common.ErrValidation, len(plaintext), s.maxMessageSize)
	}

	ciphertext, nonce, err := s.vault.Encrypt(plaintext)
	if err != nil {
		s.logger.Error(ctx, "encryption failed", "error", err)
		return nil, err
	}

	signature, err := s.authority.Sign(ciphertext)
	if err != nil {
		s.logger.Error(ctx, "signing failed", "error", err)
		return nil, err
	}

	rec := &models.Record{Ciphertext: ciphertext, Nonce: nonce, Signature: signature}

	sctx, cancel := s.storageCtx(ctx)
	defer cancel()
	if _, err := s.records.Insert(sctx, rec); err != nil {
		err = storageErr(err)
		s.logger.Error(ctx, "record insert failed", "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "record stored", "record_id", rec.ID, "scheme", string(s.authority.Scheme()))
	return &SubmitResult{RecordID: rec.ID, Signature: signature, CreatedAt: rec.CreatedAt}, nil
}

// List returns every stored record in insertion order. No plaintext is
// included.
func (s *LifecycleService) List(ctx context.Context) ([]*models.Record, error) {
	sctx, cancel := s.storageCtx(ctx)
	defer cancel()

	list, err := s.records.List(sctx)
	if err != nil {
		err = storageErr(err)
		s.logger.Error(ctx, "record list failed", "error", err)
		return nil, err
	}
	return list, nil
}

func (s *LifecycleService) record(ctx context.Context, id string) (*models.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: record id is required", common.ErrValidation)
	}

	sctx, cancel := s.storageCtx(ctx)
	defer cancel()

	rec, err := s.records.Get(sctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return rec, nil
}

// SetCandidate sets the signature under test for recordID in the session.
// A different candidate purges revealed plaintext and resets the state to
// Checked{Unknown}.
func (s *LifecycleService) SetCandidate(ctx context.Context, sessionID, recordID string, candidate []byte) (State, error) {
	if _, err := s.record(ctx, recordID); err != nil {
		return nil, err
	}

	sess := s.session(sessionID)
	defer sess.mu.Unlock()

	c := sess.check(recordID)
	c.setCandidate(candidate)
	return c.state, nil
}

// ReVerify sets candidate as the signature under test and checks it against
// the stored ciphertext. The check is always cryptographic; when no verdict
// can be obtained the state stays Checked{Unknown} and a crypto fault is
// returned.
func (s *LifecycleService) ReVerify(ctx context.Context, sessionID, recordID string, candidate []byte) (Outcome, error) {
	rec, err := s.record(ctx, recordID)
	if err != nil {
		return Unknown, err
	}

	sess := s.session(sessionID)
	defer sess.mu.Unlock()

	c := sess.check(recordID)
	c.setCandidate(candidate)
	c.purge(Unknown)

	ok, err := s.verifier.Verify(ctx, rec.Ciphertext, candidate)
	if err != nil {
		err = fmt.Errorf("%w: %v", common.ErrVerifierUnavailable, err)
		s.logger.Error(ctx, "verification failed", "record_id", recordID, "error", err)
		return Unknown, err
	}

	outcome := Invalid
	if ok {
		outcome = Valid
	}
	c.purge(outcome)

	s.logger.Info(ctx, "record verified",
		"record_id", recordID,
		"outcome", outcome.String(),
		"stored_signature", bytes.Equal(candidate, rec.Signature),
	)
	return outcome, nil
}

// Reveal decrypts the record for the session. It is allowed only while the
// last verification of the current candidate succeeded; otherwise it fails
// with common.ErrVerificationRequired and the state is unchanged.
func (s *LifecycleService) Reveal(ctx context.Context, sessionID, recordID string) ([]byte, error) {
	rec, err := s.record(ctx, recordID)
	if err != nil {
		return nil, err
	}

	sess := s.session(sessionID)
	defer sess.mu.Unlock()

	c := sess.check(recordID)
	switch st := c.state.(type) {
	case Revealed:
		return bytes.Clone(st.Plaintext), nil
	case Checked:
		if st.Outcome != Valid {
			return nil, common.ErrVerificationRequired
		}
	default:
		return nil, common.ErrVerificationRequired
	}

	plaintext, err := s.vault.Decrypt(rec.Ciphertext, rec.Nonce)
	if err != nil {
		s.logger.Error(ctx, "decryption failed", "record_id", recordID, "error", err)
		return nil, err
	}

	c.state = Revealed{Plaintext: plaintext}
	s.logger.Info(ctx, "record revealed", "record_id", recordID)
	return bytes.Clone(plaintext), nil
}

// Status reports the session's state for recordID without changing it.
func (s *LifecycleService) Status(sessionID, recordID string) State {
	sess := s.session(sessionID)
	defer sess.mu.Unlock()

	c, ok := sess.checks[recordID]
	if !ok {
		return Stored{}
	}
	// the session owns revealed plaintext and wipes it on purge
	if r, ok := c.state.(Revealed); ok {
		return Revealed{Plaintext: bytes.Clone(r.Plaintext)}
	}
	return c.state
}

// PublicKey exports the authority's public key.
func (s *LifecycleService) PublicKey() PublicKeyInfo {
	return PublicKeyInfo{Scheme: string(s.authority.Scheme()), PublicKeyPEM: s.authority.PublicKey()}
}

// Close wipes all revealed plaintext held by sessions.
func (s *LifecycleService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.wipe()
		delete(s.sessions, id)
	}
}
