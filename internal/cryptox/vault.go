// Package cryptox holds the process-wide key material of SealVault: the
// symmetric Vault used for storage-at-rest encryption and the signing
// Authority that vouches for stored ciphertexts.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/sealvault/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher names the AEAD construction used by a Vault.
type Cipher string

const (
	CipherAESGCM            Cipher = "aes-gcm"
	CipherXChaCha20Poly1305 Cipher = "xchacha20poly1305"
)

const vaultKeySize = 32

var errVaultDestroyed = errors.New("vault destroyed")

// randReader is a test seam for nonce generation.
var randReader io.Reader = rand.Reader

// Vault encrypts and decrypts opaque payloads under a key that is generated
// once at construction and kept inside a memguard enclave. The key is never
// exported.
type Vault struct {
	cipher Cipher
	key    *memguard.Enclave
}

// NewVault creates a Vault with a fresh random 256-bit key.
func NewVault(c Cipher) (*Vault, error) {
	switch c {
	case CipherAESGCM, CipherXChaCha20Poly1305:
	default:
		return nil, fmt.Errorf("%w: unsupported cipher %q", common.ErrValidation, c)
	}
	return &Vault{cipher: c, key: memguard.NewEnclaveRandom(vaultKeySize)}, nil
}

// Cipher reports the AEAD construction in use.
func (v *Vault) Cipher() Cipher {
	return v.cipher
}

func (v *Vault) aead() (cipher.AEAD, error) {
	if v.key == nil {
		return nil, errVaultDestroyed
	}
	buf, err := v.key.Open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	if v.cipher == CipherXChaCha20Poly1305 {
		return chacha20poly1305.NewX(buf.Bytes())
	}

	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under the vault key with a freshly generated random
// nonce. Empty plaintext is valid input. Only failures of the underlying
// primitives are reported, as common.ErrCrypto.
func (v *Vault) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := v.aead()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: cipher init: %v", common.ErrCrypto, err)
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: nonce: %v", common.ErrCrypto, err)
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt is the inverse of Encrypt. A ciphertext/nonce pair that does not
// authenticate yields common.ErrIntegrity; no partial plaintext is returned.
func (v *Vault) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	aead, err := v.aead()
	if err != nil {
		return nil, fmt.Errorf("%w: cipher init: %v", common.ErrCrypto, err)
	}

	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce length %d, want %d", common.ErrIntegrity, len(nonce), aead.NonceSize())
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}
	// Open returns nil for an empty message; keep it distinguishable from failure.
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// Destroy wipes the key. The Vault is unusable afterwards; call it once at
// shutdown. memguard.Purge wipes every enclave as well.
func (v *Vault) Destroy() {
	v.key = nil
}
