package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// DefaultDerivationPath is the only path keys are derived at: account 0,
// external chain, index 0 of the Ethereum coin type. Changing it breaks every
// existing backup.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

const (
	masterKeyPrefix = "m"
	hardenedSuffix  = "'"
)

var defaultPath = mustParseDerivationPath(DefaultDerivationPath)

// DerivationPath is a BIP-32 path, hardened indexes are offset by
// hdkeychain.HardenedKeyStart.
type DerivationPath []uint32

// ParseDerivationPath parses paths like m/44'/60'/0'/0/0. The m/ prefix is
// optional. Indexes can be decimal or 0x prefixed hex, and whitespace around
// them is ignored.
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	if strings.TrimSpace(strPath) == "" {
		return nil, ErrMissingDerivationPath
	}

	elems := strings.Split(strPath, "/")
	if len(elems) < 2 {
		return nil, ErrMalformedDerivationPath
	}
	for i := range elems {
		elems[i] = strings.TrimSpace(elems[i])
		if elems[i] == "" {
			return nil, ErrMalformedDerivationPath
		}
	}
	if elems[0] == masterKeyPrefix {
		elems = elems[1:]
	}

	path := make(DerivationPath, 0, len(elems))
	for _, elem := range elems {
		index, err := parsePathElem(elem)
		if err != nil {
			return nil, err
		}
		path = append(path, index)
	}
	return path, nil
}

func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(masterKeyPrefix)
	for _, index := range path {
		sb.WriteString("/")
		if index >= hdkeychain.HardenedKeyStart {
			sb.WriteString(strconv.FormatUint(uint64(index-hdkeychain.HardenedKeyStart), 10))
			sb.WriteString(hardenedSuffix)
			continue
		}
		sb.WriteString(strconv.FormatUint(uint64(index), 10))
	}
	return sb.String()
}

func parsePathElem(elem string) (uint32, error) {
	hardened := strings.HasSuffix(elem, hardenedSuffix)
	if hardened {
		elem = strings.TrimSpace(strings.TrimSuffix(elem, hardenedSuffix))
	}

	index, err := strconv.ParseUint(elem, 0, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", ErrOutOfRangeDerivationPathElem, elem)
		}
		return 0, fmt.Errorf("%w: bad elem %q", ErrInvalidDerivationPath, elem)
	}
	if !hardened {
		return uint32(index), nil
	}
	if index >= hdkeychain.HardenedKeyStart {
		return 0, fmt.Errorf("%w: %s'", ErrOutOfRangeDerivationPathElem, elem)
	}
	return uint32(index) + hdkeychain.HardenedKeyStart, nil
}

func mustParseDerivationPath(strPath string) DerivationPath {
	path, err := ParseDerivationPath(strPath)
	if err != nil {
		panic(err)
	}
	return path
}
