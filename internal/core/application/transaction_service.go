package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// ErrWalletChanged is returned by SendTransaction if the wallet was replaced
// between fetching the nonce and signing. Nothing is broadcast.
var ErrWalletChanged = errors.New("wallet changed while sending, retry")

// TransactionService is responsible for operations that involve the ledger:
//   - Send funds: fetch the nonce, sign with the wallet key and broadcast.
//   - Get the balance of the wallet, caching the last known value.
//   - Get the paginated transaction history of the wallet.
//
// Failures to refresh balance or history are not fatal: they are logged and
// the last known value is returned flagged as stale. Failures on the send
// path are always returned to the caller and never retried.
type TransactionService struct {
	walletService  *WalletService
	ledger         ports.Ledger
	defaultFee     string
	currencySymbol string

	log  func(format string, a ...interface{})
	warn func(format string, a ...interface{})
}

func NewTransactionService(
	walletService *WalletService, ledger ports.Ledger,
	defaultFee, currencySymbol string,
) *TransactionService {
	if defaultFee == "" {
		defaultFee = DefaultFee
	}
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transaction service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transaction service: %s", format)
		log.Warnf(format, a...)
	}
	return &TransactionService{
		walletService, ledger, defaultFee, currencySymbol, logFn, warnFn,
	}
}

// SendTransaction transfers the given amount to the recipient. The recipient
// is validated before any keystore or ledger access.
func (ts *TransactionService) SendTransaction(
	ctx context.Context, args SendTransactionArgs,
) (*SendTransactionResult, error) {
	if err := args.validate(ts.defaultFee); err != nil {
		return nil, err
	}

	info, err := ts.walletService.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := ts.ledger.GetNonce(ctx, info.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	ts.log("got nonce %d for %s", nonce, info.Address)

	signedTx, err := ts.walletService.SignTransaction(ctx, wallet.UnsignedTransaction{
		To:     args.To,
		Amount: args.Amount,
		Fee:    args.Fee,
		Nonce:  nonce,
		Data:   args.Data,
	})
	if err != nil {
		return nil, err
	}
	// The nonce belongs to info.Address.
	if !strings.EqualFold(signedTx.From, info.Address) {
		return nil, ErrWalletChanged
	}

	txHash, err := ts.ledger.Broadcast(ctx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	ts.log("broadcasted tx %s", txHash)

	return &SendTransactionResult{
		TxHash: txHash,
		Tx:     signedTx,
	}, nil
}

// GetBalance fetches the wallet balance from the ledger and caches it. If the
// ledger is unreachable the cached value is returned, flagged as stale.
func (ts *TransactionService) GetBalance(
	ctx context.Context,
) (*BalanceInfo, error) {
	info, err := ts.walletService.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	cached := &BalanceInfo{
		Address:   info.Address,
		Balance:   info.Balance,
		Currency:  ts.currencySymbol,
		UpdatedAt: info.BalanceUpdatedAt,
		Stale:     true,
	}

	balance, err := ts.ledger.GetBalance(ctx, info.Address)
	if err != nil {
		ts.warn("failed to refresh balance: %s", err)
		return cached, nil
	}

	now := time.Now().Unix()
	repo := ts.walletService.repoManager.WalletInfoRepository()
	if err := repo.UpdateBalance(ctx, balance.Balance, now); err != nil {
		ts.warn("failed to update cached balance: %s", err)
		return cached, nil
	}

	currency := balance.Currency
	if currency == "" {
		currency = ts.currencySymbol
	}
	updated, err := repo.GetWalletInfo(ctx)
	if err != nil {
		ts.warn("failed to read cached balance: %s", err)
		return cached, nil
	}
	return &BalanceInfo{
		Address:   info.Address,
		Balance:   updated.Balance,
		Currency:  currency,
		UpdatedAt: updated.BalanceUpdatedAt,
	}, nil
}

// GetTransactionHistory returns a page of the wallet transactions. If the
// ledger is unreachable an empty page flagged as stale is returned.
func (ts *TransactionService) GetTransactionHistory(
	ctx context.Context, page, limit int,
) (*TransactionHistory, error) {
	if page <= 0 {
		page = DefaultHistoryPage
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	info, err := ts.walletService.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	history, err := ts.ledger.GetTransactionHistory(ctx, info.Address, page, limit)
	if err != nil {
		ts.warn("failed to refresh transaction history: %s", err)
		return &TransactionHistory{
			Transactions: []ports.Transaction{},
			Page:         page,
			Limit:        limit,
			Stale:        true,
		}, nil
	}

	txs := history.Transactions
	if txs == nil {
		txs = []ports.Transaction{}
	}
	return &TransactionHistory{
		Transactions: txs,
		Total:        history.Total,
		Page:         page,
		Limit:        limit,
	}, nil
}
