package wallet

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const (
	// MnemonicWordCount is the only accepted phrase length.
	MnemonicWordCount = 12

	defaultEntropySize = 128
)

// Mnemonic is an ordered list of BIP-39 english words. It must be treated as
// a secret: never log it, never keep it around longer than needed.
type Mnemonic []string

// String returns the words joined by a single space.
func (m Mnemonic) String() string {
	return strings.Join(m, " ")
}

// Bytes is like String but returns a buffer the caller can wipe.
func (m Mnemonic) Bytes() []byte {
	if len(m) == 0 {
		return nil
	}
	size := len(m) - 1
	for _, w := range m {
		size += len(w)
	}
	buf := make([]byte, 0, size)
	for i, w := range m {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w...)
	}
	return buf
}

// Zero overwrites the words of the mnemonic.
func (m Mnemonic) Zero() {
	for i := range m {
		m[i] = ""
	}
}

type NewMnemonicArgs struct {
	EntropySize uint32
}

func (a NewMnemonicArgs) validate() error {
	if a.EntropySize > 0 {
		if a.EntropySize != defaultEntropySize {
			return ErrInvalidEntropySize
		}
	}
	return nil
}

// NewMnemonic returns a new random 12-words mnemonic. Entropy is read from
// crypto/rand, an error here must be treated as fatal by the caller.
func NewMnemonic(args NewMnemonicArgs) (Mnemonic, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	if args.EntropySize == 0 {
		args.EntropySize = defaultEntropySize
	}

	entropy, err := bip39.NewEntropy(int(args.EntropySize))
	if err != nil {
		return nil, err
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return Mnemonic(strings.Split(mnemonic, " ")), nil
}

// ValidateMnemonic returns whether the given words form a valid 12-words
// mnemonic. It never panics on malformed input.
func ValidateMnemonic(words []string) bool {
	return checkMnemonic(words) == nil
}

// ParseMnemonic strictly parses a space separated phrase. Any failure is
// reported as a *MnemonicError matching ErrInvalidMnemonic.
func ParseMnemonic(phrase string) (Mnemonic, error) {
	words := strings.Fields(phrase)
	if err := checkMnemonic(words); err != nil {
		return nil, err
	}
	return Mnemonic(words), nil
}

func checkMnemonic(words []string) error {
	if len(words) != MnemonicWordCount {
		return &MnemonicError{WrongWordCount}
	}

	for _, w := range words {
		if w != strings.ToLower(w) {
			return &MnemonicError{UnknownWord}
		}
		if _, ok := bip39.GetWordIndex(w); !ok {
			return &MnemonicError{UnknownWord}
		}
	}

	// Count and words are fine at this point, only the checksum can fail.
	entropy, err := bip39.EntropyFromMnemonic(strings.Join(words, " "))
	if err != nil {
		return &MnemonicError{ChecksumMismatch}
	}
	clear(entropy)
	return nil
}
