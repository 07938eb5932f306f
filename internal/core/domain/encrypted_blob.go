package domain

import (
	"encoding/json"
	"fmt"
)

const (
	EncryptedBlobVersion = 1
	KDFScrypt            = "scrypt"
	CipherAES256GCM      = "aes-256-gcm"

	// Bounds of the scrypt params a blob may carry. scrypt allocates
	// 128*N*R bytes, capped at maxScryptMemory.
	maxScryptN      = 1 << 20
	maxScryptR      = 32
	maxScryptP      = 16
	maxScryptMemory = 64 << 20
)

// EncryptedBlob is a self-contained passphrase-encrypted secret. It carries
// every parameter needed to decrypt it except the passphrase.
type EncryptedBlob struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
	Cipher     string `json:"cipher"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// ParseEncryptedBlob decodes the JSON form of a blob. Any malformed input
// yields ErrDecryptionFailed.
func ParseEncryptedBlob(buf []byte) (*EncryptedBlob, error) {
	blob := &EncryptedBlob{}
	if err := json.Unmarshal(buf, blob); err != nil {
		return nil, ErrDecryptionFailed
	}
	if err := blob.Validate(); err != nil {
		return nil, ErrDecryptionFailed
	}
	return blob, nil
}

func (b *EncryptedBlob) Validate() error {
	if b.Version != EncryptedBlobVersion {
		return fmt.Errorf("unsupported blob version %d", b.Version)
	}
	if b.KDF != KDFScrypt {
		return fmt.Errorf("unsupported kdf %s", b.KDF)
	}
	if b.Cipher != CipherAES256GCM {
		return fmt.Errorf("unsupported cipher %s", b.Cipher)
	}
	if b.N <= 1 || b.N > maxScryptN || b.N&(b.N-1) != 0 {
		return fmt.Errorf("invalid kdf params")
	}
	if b.R <= 0 || b.R > maxScryptR || b.P <= 0 || b.P > maxScryptP {
		return fmt.Errorf("invalid kdf params")
	}
	if 128*int64(b.N)*int64(b.R) > maxScryptMemory {
		return fmt.Errorf("kdf params exceed memory limit")
	}
	if len(b.Salt) == 0 || len(b.Nonce) == 0 || len(b.Ciphertext) == 0 {
		return fmt.Errorf("missing salt, nonce or ciphertext")
	}
	return nil
}

// Serialize returns the JSON form of the blob.
func (b *EncryptedBlob) Serialize() ([]byte, error) {
	return json.Marshal(b)
}
