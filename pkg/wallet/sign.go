package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLen = crypto.SignatureLength

// Sign encodes the transaction, signs the EIP-191 hash of the encoding and
// returns the signed transaction tagged with the signer address.
//
// Signatures are deterministic (RFC 6979): signing the same transaction twice
// with the same key yields identical bytes.
func Sign(tx UnsignedTransaction, key *KeyMaterial) (*SignedTransaction, error) {
	if key == nil || key.privateKey == nil {
		return nil, ErrMissingPrivateKey
	}

	p, err := tx.payload()
	if err != nil {
		return nil, err
	}
	encoding, err := encodePayload(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSigningFailure, err)
	}

	signature, err := signDigest(accounts.TextHash(encoding), key.privateKey)
	if err != nil {
		return nil, err
	}

	raw, err := encodeSigned(p, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSigningFailure, err)
	}

	return &SignedTransaction{
		UnsignedTransaction: tx,
		From:                key.Address(),
		Signature:           signature,
		Hash:                transactionHash(raw),
		Raw:                 raw,
	}, nil
}

// SignMessage signs an arbitrary message with the EIP-191 personal message
// scheme.
func SignMessage(message []byte, key *KeyMaterial) ([]byte, error) {
	if key == nil || key.privateKey == nil {
		return nil, ErrMissingPrivateKey
	}
	return signDigest(accounts.TextHash(message), key.privateKey)
}

// Verify recovers the signer of the EIP-191 hash of message and compares it
// to address, ignoring case. Any malformed input yields false.
func Verify(message, signature []byte, address string) bool {
	if !IsValidAddress(address) {
		return false
	}
	signer, err := recoverAddress(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(signer.Hex(), address)
}

// VerifyTransaction checks that the signature of tx matches its unsigned
// fields and sender, and that raw encoding and hash are consistent.
func VerifyTransaction(tx *SignedTransaction) bool {
	if tx == nil {
		return false
	}
	p, err := tx.UnsignedTransaction.payload()
	if err != nil {
		return false
	}
	encoding, err := encodePayload(p)
	if err != nil {
		return false
	}
	if !Verify(encoding, tx.Signature, tx.From) {
		return false
	}

	raw, err := encodeSigned(p, tx.Signature)
	if err != nil {
		return false
	}
	if len(tx.Raw) > 0 && !bytes.Equal(raw, tx.Raw) {
		return false
	}
	return strings.EqualFold(transactionHash(raw), tx.Hash)
}

func signDigest(digest []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	signature, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSigningFailure, err)
	}
	// Adjust V from 0/1 to 27/28.
	if signature[signatureLen-1] < 27 {
		signature[signatureLen-1] += 27
	}
	return signature, nil
}

func recoverAddress(message, signature []byte) (common.Address, error) {
	if len(signature) != signatureLen {
		return common.Address{}, ErrInvalidSignature
	}

	sig := common.CopyBytes(signature)
	if sig[signatureLen-1] >= 27 {
		sig[signatureLen-1] -= 27
	}
	v := sig[signatureLen-1]
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, ErrInvalidSignature
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func transactionHash(raw []byte) string {
	return crypto.Keccak256Hash(raw).Hex()
}
