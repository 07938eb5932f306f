package ports

import (
	"context"

	"github.com/gauss-network/gauss-wallet/pkg/wallet"
)

// Transaction is a ledger record involving the wallet address. Amounts are
// decimal strings in display units.
type Transaction struct {
	ID        string `json:"id"`
	Hash      string `json:"hash,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"`
}

// TransactionPage is one page of the transaction history of an address.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
}

// Balance is the spendable balance of an address in display units.
type Balance struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// Ledger is the abstraction for the remote service that keeps account state
// and accepts signed transactions.
type Ledger interface {
	// GetNonce returns the next nonce to use for a transaction sent by address.
	GetNonce(ctx context.Context, address string) (uint64, error)
	// Broadcast submits the signed transaction and returns the hash assigned
	// by the ledger.
	Broadcast(ctx context.Context, tx *wallet.SignedTransaction) (string, error)
	// GetBalance returns the balance of address.
	GetBalance(ctx context.Context, address string) (*Balance, error)
	// GetTransactionHistory returns a page of transactions involving address.
	GetTransactionHistory(
		ctx context.Context, address string, page, limit int,
	) (*TransactionPage, error)
}
