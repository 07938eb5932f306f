package scryptaes_test

import (
	"bytes"
	"testing"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	scryptaes "github.com/gauss-network/gauss-wallet/internal/infrastructure/secret-cypher/scrypt-aes"
	"github.com/stretchr/testify/require"
)

var (
	plaintext  = []byte("test test test test test test test test test test test junk")
	passphrase = []byte("correct horse battery")
)

func newTestCypher() domain.ISecretCypher {
	return scryptaes.NewCypherWithParams(1<<10, 8, 1)
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	cypher := newTestCypher()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		tests := [][]byte{
			plaintext,
			{0x00},
			bytes.Repeat([]byte{0xff}, 4096),
		}

		for _, p := range tests {
			blob, err := cypher.Encrypt(p, passphrase)
			require.NoError(t, err)
			require.NotNil(t, blob)
			require.NoError(t, blob.Validate())
			require.Equal(t, 1<<10, blob.N)

			decrypted, err := cypher.Decrypt(blob, passphrase)
			require.NoError(t, err)
			require.Equal(t, p, decrypted)
		}
	})

	t.Run("serialized round trip", func(t *testing.T) {
		t.Parallel()

		blob, err := cypher.Encrypt(plaintext, passphrase)
		require.NoError(t, err)
		buf, err := blob.Serialize()
		require.NoError(t, err)
		require.NotContains(t, string(buf), string(plaintext))

		parsed, err := domain.ParseEncryptedBlob(buf)
		require.NoError(t, err)

		decrypted, err := scryptaes.NewCypher().Decrypt(parsed, passphrase)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	})

	t.Run("fresh salt and nonce", func(t *testing.T) {
		t.Parallel()

		blob1, err := cypher.Encrypt(plaintext, passphrase)
		require.NoError(t, err)
		blob2, err := cypher.Encrypt(plaintext, passphrase)
		require.NoError(t, err)

		require.NotEqual(t, blob1.Salt, blob2.Salt)
		require.NotEqual(t, blob1.Nonce, blob2.Nonce)
		require.NotEqual(t, blob1.Ciphertext, blob2.Ciphertext)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		t.Parallel()

		blob, err := cypher.Encrypt(plaintext, passphrase)
		require.NoError(t, err)

		tests := [][]byte{
			[]byte("correct horse battery!"),
			[]byte("Correct horse battery"),
			nil,
		}
		for _, wrong := range tests {
			decrypted, err := cypher.Decrypt(blob, wrong)
			require.Equal(t, domain.ErrDecryptionFailed, err)
			require.Nil(t, decrypted)
		}
	})

	t.Run("corrupted blob", func(t *testing.T) {
		t.Parallel()

		blob, err := cypher.Encrypt(plaintext, passphrase)
		require.NoError(t, err)

		tests := []func(b domain.EncryptedBlob) domain.EncryptedBlob{
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.Ciphertext = flipLastBit(b.Ciphertext)
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.Salt = flipLastBit(b.Salt)
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.Nonce = flipLastBit(b.Nonce)
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.Nonce = b.Nonce[:8]
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.Ciphertext = b.Ciphertext[:len(b.Ciphertext)-1]
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.N *= 2
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.KDF = "pbkdf2"
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.N, b.R = 1<<20, 1<<12
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.N, b.R = 1<<20, 8
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.P = 1 << 30
				return b
			},
			func(b domain.EncryptedBlob) domain.EncryptedBlob {
				b.R = -8
				return b
			},
		}

		for _, corrupt := range tests {
			corrupted := corrupt(*blob)
			decrypted, err := cypher.Decrypt(&corrupted, passphrase)
			require.Equal(t, domain.ErrDecryptionFailed, err)
			require.Nil(t, decrypted)
		}

		decrypted, err := cypher.Decrypt(nil, passphrase)
		require.Equal(t, domain.ErrDecryptionFailed, err)
		require.Nil(t, decrypted)
	})

	t.Run("invalid args", func(t *testing.T) {
		t.Parallel()

		blob, err := cypher.Encrypt(nil, passphrase)
		require.Error(t, err)
		require.Nil(t, blob)

		blob, err = cypher.Encrypt(plaintext, nil)
		require.Error(t, err)
		require.Nil(t, blob)
	})
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	salt, err := scryptaes.NewSalt()
	require.NoError(t, err)

	key1, err := scryptaes.DeriveKey(passphrase, salt)
	require.NoError(t, err)
	require.Len(t, key1, 32)

	key2, err := scryptaes.DeriveKey(passphrase, salt)
	require.NoError(t, err)
	require.Equal(t, key1, key2)

	otherSalt, err := scryptaes.NewSalt()
	require.NoError(t, err)
	key3, err := scryptaes.DeriveKey(passphrase, otherSalt)
	require.NoError(t, err)
	require.NotEqual(t, key1, key3)

	_, err = scryptaes.DeriveKey(nil, salt)
	require.Error(t, err)
	_, err = scryptaes.DeriveKey(passphrase, salt[:4])
	require.Error(t, err)
}

func flipLastBit(buf []byte) []byte {
	cp := append([]byte{}, buf...)
	cp[len(cp)-1] ^= 0x01
	return cp
}
