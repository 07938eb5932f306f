package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

var (
	ErrMissingMnemonic       = errors.New("missing mnemonic")
	ErrMissingPrivateKey     = errors.New("missing private key")
	ErrMissingDerivationPath = errors.New("missing derivation path")
	ErrMissingRecipient      = errors.New("missing recipient address")
	ErrMissingAmount         = errors.New("missing amount")
	ErrMissingFee            = errors.New("missing fee")
	ErrMissingSignature      = errors.New("missing signature")

	ErrInvalidEntropySize = errors.New("entropy size must be 128 bits")
	ErrInvalidMnemonic    = errors.New("invalid mnemonic")
	ErrInvalidKey         = errors.New("invalid private key")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidData        = errors.New("invalid data payload")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidEncoding    = errors.New("invalid transaction encoding")

	ErrInvalidDerivationPath   = errors.New("invalid derivation path")
	ErrMalformedDerivationPath = errors.New(
		"path must not start or end with a '/' and " +
			"can optionally start with 'm/' for absolute paths",
	)
	ErrOutOfRangeDerivationPathElem = fmt.Errorf(
		"path elements must be in range [0, %d]", hdkeychain.HardenedKeyStart-1,
	)

	// ErrSigningFailure reports an unexpected failure of the signature
	// primitive. It is not recoverable by the user.
	ErrSigningFailure = errors.New("failed to sign transaction")
)

// MnemonicFailureReason tells why a candidate phrase was rejected.
type MnemonicFailureReason int

const (
	WrongWordCount MnemonicFailureReason = iota
	UnknownWord
	ChecksumMismatch
)

func (r MnemonicFailureReason) String() string {
	switch r {
	case WrongWordCount:
		return "wrong word count"
	case UnknownWord:
		return "unknown word"
	case ChecksumMismatch:
		return "checksum mismatch"
	default:
		return "unknown"
	}
}

// MnemonicError is returned by ParseMnemonic. Its message never reveals the
// reason nor the offending word; the reason is only reachable with errors.As.
type MnemonicError struct {
	Reason MnemonicFailureReason
}

func (e *MnemonicError) Error() string {
	return ErrInvalidMnemonic.Error()
}

func (e *MnemonicError) Is(target error) bool {
	return target == ErrInvalidMnemonic
}
