package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/shopspring/decimal"
)

const (
	// Keystore entry names. Values under these keys are secrets.
	PrivateKeyEntry = "gauss_private_key"
	MnemonicEntry   = "gauss_mnemonic"

	DefaultWalletName  = "My Wallet"
	ImportedWalletName = "Imported Wallet"

	maxWalletNameLength = 64
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	ErrKeystoreFailure     = errors.New("keystore failure")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrMnemonicUnavailable = errors.New("wallet was imported from a private key and has no mnemonic")
	ErrPassphraseTooShort  = errors.New("passphrase is too short")
	ErrEntryNotFound       = errors.New("keystore entry not found")
	ErrWalletNameTooLong   = fmt.Errorf("wallet name must be at most %d characters", maxWalletNameLength)
	ErrInvalidBalance      = errors.New("invalid balance")
)

// WalletStatus is the state of the single wallet slot.
type WalletStatus int

const (
	WalletEmpty WalletStatus = iota
	WalletActive
)

func (s WalletStatus) String() string {
	if s == WalletActive {
		return "active"
	}
	return "empty"
}

// WalletInfo holds the non-sensitive display metadata of the wallet. It is
// the only wallet data that may live outside the keystore.
type WalletInfo struct {
	Address          string
	Name             string
	Balance          string
	BalanceUpdatedAt int64
	CreatedAt        int64
}

// NewWalletInfo returns the metadata record for a freshly created or imported
// wallet. An empty name is replaced with defaultName.
func NewWalletInfo(address, name, defaultName string) (*WalletInfo, error) {
	if !wallet.IsValidAddress(address) {
		return nil, wallet.ErrInvalidAddress
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}
	if len(name) > maxWalletNameLength {
		return nil, ErrWalletNameTooLong
	}

	return &WalletInfo{
		Address:   address,
		Name:      name,
		Balance:   "0",
		CreatedAt: time.Now().Unix(),
	}, nil
}

// UpdateBalance records the last balance known from the ledger, in display
// units.
func (w *WalletInfo) UpdateBalance(balance string, updatedAt int64) error {
	d, err := decimal.NewFromString(strings.TrimSpace(balance))
	if err != nil || d.IsNegative() {
		return ErrInvalidBalance
	}
	w.Balance = d.String()
	w.BalanceUpdatedAt = updatedAt
	return nil
}
