package scryptaes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"golang.org/x/crypto/scrypt"
)

const (
	// Work factor of the passphrase KDF. Changing these only affects blobs
	// created afterwards since every blob records its own params.
	DefaultN = 1 << 15
	DefaultR = 8
	DefaultP = 1

	keyLen   = 32
	saltLen  = 16
	nonceLen = 12
)

type cypher struct {
	n, r, p int
	rand    io.Reader
}

// NewCypher returns an AES-256-GCM cypher keyed by scrypt with the default
// work factor.
func NewCypher() domain.ISecretCypher {
	return NewCypherWithParams(DefaultN, DefaultR, DefaultP)
}

// NewCypherWithParams is like NewCypher with a custom scrypt work factor.
// Tests use a low N to run fast.
func NewCypherWithParams(n, r, p int) domain.ISecretCypher {
	return &cypher{n, r, p, rand.Reader}
}

func (c *cypher) Encrypt(
	plaintext, passphrase []byte,
) (*domain.EncryptedBlob, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("missing plaintext")
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("missing passphrase")
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(passphrase, salt, c.n, c.r, c.p)
	if err != nil {
		return nil, err
	}

	return &domain.EncryptedBlob{
		Version:    domain.EncryptedBlobVersion,
		KDF:        domain.KDFScrypt,
		N:          c.n,
		R:          c.r,
		P:          c.p,
		Cipher:     domain.CipherAES256GCM,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aesGCM.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt fails with the bare domain.ErrDecryptionFailed for wrong
// passphrases and malformed or tampered blobs alike.
func (c *cypher) Decrypt(
	blob *domain.EncryptedBlob, passphrase []byte,
) ([]byte, error) {
	if blob == nil || len(passphrase) == 0 {
		return nil, domain.ErrDecryptionFailed
	}
	if err := blob.Validate(); err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	if len(blob.Nonce) != nonceLen {
		return nil, domain.ErrDecryptionFailed
	}

	aesGCM, err := newGCM(passphrase, blob.Salt, blob.N, blob.R, blob.P)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	plaintext, err := aesGCM.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// DeriveKey stretches passphrase into a 32-byte key with the default scrypt
// params. It is used to unlock the at-rest encryption of the keystore.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("missing passphrase")
	}
	if len(salt) < saltLen {
		return nil, fmt.Errorf("salt must be at least %d bytes", saltLen)
	}
	return scrypt.Key(passphrase, salt, DefaultN, DefaultR, DefaultP, keyLen)
}

// NewSalt returns a random salt suitable for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

func newGCM(passphrase, salt []byte, n, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key(passphrase, salt, n, r, p, keyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
