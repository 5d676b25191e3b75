package cryptox

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/dmitrijs2005/sealvault/internal/common"
)

// Scheme names a signature algorithm supported by Authority.
type Scheme string

const (
	// SchemeRSASHA256 is RSA-2048 with PKCS#1 v1.5 padding over SHA-256.
	SchemeRSASHA256 Scheme = "rsa-sha256"
	SchemeEd25519   Scheme = "ed25519"
	// SchemeMLDSA65 is the post-quantum ML-DSA-65 (FIPS 204) scheme.
	SchemeMLDSA65 Scheme = "ml-dsa-65"
)

const rsaKeyBits = 2048

type signer interface {
	sign(payload []byte) ([]byte, error)
	verify(payload, signature []byte) bool
	publicKeyPEM() ([]byte, error)
}

// Authority holds a keypair generated once at construction. It signs payloads
// and verifies (payload, signature) pairs. The private key never leaves it.
type Authority struct {
	scheme    Scheme
	signer    signer
	publicPEM string
}

// NewAuthority generates a new keypair for the given scheme.
func NewAuthority(scheme Scheme) (*Authority, error) {
	var (
		s   signer
		err error
	)

	switch scheme {
	case SchemeRSASHA256:
		s, err = newRSASigner()
	case SchemeEd25519:
		s, err = newEd25519Signer()
	case SchemeMLDSA65:
		s, err = newMLDSASigner()
	default:
		return nil, fmt.Errorf("%w: unsupported signature scheme %q", common.ErrValidation, scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: keypair generation: %v", common.ErrCrypto, err)
	}

	p, err := s.publicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("%w: public key export: %v", common.ErrCrypto, err)
	}

	return &Authority{scheme: scheme, signer: s, publicPEM: string(p)}, nil
}

// Scheme reports the signature algorithm of the authority.
func (a *Authority) Scheme() Scheme {
	return a.scheme
}

// PublicKey returns the PEM encoded public key.
func (a *Authority) PublicKey() string {
	return a.publicPEM
}

// Sign signs payload with the authority's private key.
func (a *Authority) Sign(payload []byte) ([]byte, error) {
	sig, err := a.signer.sign(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", common.ErrCrypto, err)
	}
	return sig, nil
}

// Verify reports whether signature is a valid signature of payload under the
// authority's public key. Malformed signatures are simply invalid.
func (a *Authority) Verify(payload, signature []byte) bool {
	if len(signature) == 0 {
		return false
	}
	return a.signer.verify(payload, signature)
}

// --- rsa-sha256 ---

type rsaSigner struct {
	key *rsa.PrivateKey
}

func newRSASigner() (*rsaSigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, err
	}
	return &rsaSigner{key: key}, nil
}

func (s *rsaSigner) sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
}

func (s *rsaSigner) verify(payload, signature []byte) bool {
	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(&s.key.PublicKey, crypto.SHA256, digest[:], signature) == nil
}

func (s *rsaSigner) publicKeyPEM() ([]byte, error) {
	return pkixPEM(&s.key.PublicKey)
}

// --- ed25519 ---

type ed25519Signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newEd25519Signer() (*ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ed25519Signer{pub: pub, priv: priv}, nil
}

func (s *ed25519Signer) sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, payload), nil
}

func (s *ed25519Signer) verify(payload, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(s.pub, payload, signature)
}

func (s *ed25519Signer) publicKeyPEM() ([]byte, error) {
	return pkixPEM(s.pub)
}

// --- ml-dsa-65 ---

type mldsaSigner struct {
	pub  *mldsa65.PublicKey
	priv *mldsa65.PrivateKey
}

func newMLDSASigner() (*mldsaSigner, error) {
	pub, priv, err := mldsa65.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &mldsaSigner{pub: pub, priv: priv}, nil
}

func (s *mldsaSigner) sign(payload []byte) ([]byte, error) {
	sig := make([]byte, mldsa65.SignatureSize)
	if err := mldsa65.SignTo(s.priv, payload, nil, true, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *mldsaSigner) verify(payload, signature []byte) bool {
	if len(signature) != mldsa65.SignatureSize {
		return false
	}
	return mldsa65.Verify(s.pub, payload, nil, signature)
}

func (s *mldsaSigner) publicKeyPEM() ([]byte, error) {
	raw, err := s.pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "ML-DSA-65 PUBLIC KEY", Bytes: raw}), nil
}

func pkixPEM(pub any) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
