package domain

// ISecretCypher defines the methods a cypher must implement to encrypt or
// decrypt a secret with a passphrase.
type ISecretCypher interface {
	Encrypt(plaintext, passphrase []byte) (*EncryptedBlob, error)
	Decrypt(blob *EncryptedBlob, passphrase []byte) ([]byte, error)
}
