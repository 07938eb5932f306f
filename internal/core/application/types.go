package application

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
)

const (
	DefaultMinPassphraseLength = 8
	DefaultFee                 = "0.0001"
	DefaultCurrencySymbol      = "GAUSS"
	DefaultHistoryPage         = 1
	DefaultHistoryLimit        = 50
	MaxHistoryLimit            = 100

	backupKindMnemonic   = "mnemonic"
	backupKindPrivateKey = "private_key"
)

type WalletStatus struct {
	Status  domain.WalletStatus
	Address string
}

func (s WalletStatus) IsActive() bool {
	return s.Status == domain.WalletActive
}

type WalletInfo domain.WalletInfo

type SendTransactionArgs struct {
	To     string
	Amount string
	Fee    string
	Data   []byte
}

func (a *SendTransactionArgs) validate(defaultFee string) error {
	a.To = strings.TrimSpace(a.To)
	if a.To == "" {
		return wallet.ErrMissingRecipient
	}
	if !wallet.IsValidAddress(a.To) {
		return wallet.ErrInvalidAddress
	}

	amount, err := wallet.ToBaseUnits(a.Amount)
	if err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", wallet.ErrInvalidAmount)
	}

	if strings.TrimSpace(a.Fee) == "" {
		a.Fee = defaultFee
	}
	if _, err := wallet.ToBaseUnits(a.Fee); err != nil {
		return err
	}
	if len(a.Data) > wallet.MaxDataSize {
		return wallet.ErrInvalidData
	}
	return nil
}

type SendTransactionResult struct {
	TxHash string
	Tx     *wallet.SignedTransaction
}

type BalanceInfo struct {
	Address   string
	Balance   string
	Currency  string
	UpdatedAt int64
	// Stale is true when the ledger could not be reached and Balance is the
	// last known value.
	Stale bool
}

type TransactionHistory struct {
	Transactions []ports.Transaction `json:"transactions"`
	Total        int                 `json:"total"`
	Page         int                 `json:"page"`
	Limit        int                 `json:"limit"`
	// Stale is true when the ledger could not be reached.
	Stale bool `json:"stale,omitempty"`
}

type backupHeader struct {
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// backupPayload is the plaintext wrapped by an exported EncryptedBlob.
type backupPayload struct {
	backupHeader
	Secret string `json:"secret"`
}

// serializeBackup encodes the header and secret as a backupPayload. The
// secret is copied only into the returned buffer, which the caller must
// clear. It must not need JSON escaping.
func serializeBackup(header backupHeader, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("missing backup secret")
	}
	for _, b := range secret {
		if b < 0x20 || b >= 0x7f || b == '"' || b == '\\' {
			return nil, fmt.Errorf("backup secret contains invalid characters")
		}
	}

	buf, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	const secretPrefix, secretSuffix = `,"secret":"`, `"}`

	plaintext := make(
		[]byte, 0, len(buf)-1+len(secretPrefix)+len(secret)+len(secretSuffix),
	)
	plaintext = append(plaintext, buf[:len(buf)-1]...)
	plaintext = append(plaintext, secretPrefix...)
	plaintext = append(plaintext, secret...)
	plaintext = append(plaintext, secretSuffix...)
	return plaintext, nil
}

func parseBackupPayload(buf []byte) (*backupPayload, error) {
	p := &backupPayload{}
	if err := json.Unmarshal(buf, p); err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	if p.Kind != backupKindMnemonic && p.Kind != backupKindPrivateKey {
		return nil, domain.ErrDecryptionFailed
	}
	if p.Secret == "" {
		return nil, domain.ErrDecryptionFailed
	}
	return p, nil
}
