// Package common defines shared constants and sentinel errors used across
// client and server layers of SealVault. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Fault taxonomy of the record lifecycle.
	ErrValidation = errors.New("validation fault")
	ErrCrypto     = errors.New("crypto fault")
	ErrIntegrity  = errors.New("integrity fault")
	ErrPolicy     = errors.New("policy fault")

	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrVerificationRequired is returned by Reveal when the record has not
	// been verified with a valid candidate signature in the current session.
	ErrVerificationRequired = fmt.Errorf("%w: verification required", ErrPolicy)

	// ErrStorageUnavailable is a crypto-class fault: the ledger could not be
	// reached within the configured timeout.
	ErrStorageUnavailable = fmt.Errorf("%w: storage unavailable", ErrCrypto)

	// ErrVerifierUnavailable is reported when the signature authority cannot
	// produce a verdict.
	ErrVerifierUnavailable = fmt.Errorf("%w: verifier unavailable", ErrCrypto)
)

// Stable fault kind tags surfaced at the transport boundary.
const (
	KindValidation      = "validation"
	KindCrypto          = "crypto"
	KindIntegrity       = "integrity"
	KindPolicy          = "policy"
	KindNotFound        = "not_found"
	KindUnauthenticated = "unauthenticated"
	KindInternal        = "internal"
)

// Kind classifies err into one of the stable fault kinds. Unknown errors are
// reported as KindInternal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPolicy):
		return KindPolicy
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrCrypto):
		return KindCrypto
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrorUnauthorized):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}
