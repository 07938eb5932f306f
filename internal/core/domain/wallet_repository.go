package domain

import (
	"context"
)

const (
	WalletCreated WalletEventType = iota
	WalletBalanceUpdated
	WalletDeleted
)

var (
	walletTypeString = map[WalletEventType]string{
		WalletCreated:        "WalletCreated",
		WalletBalanceUpdated: "WalletBalanceUpdated",
		WalletDeleted:        "WalletDeleted",
	}
)

type WalletEventType int

func (t WalletEventType) String() string {
	return walletTypeString[t]
}

// WalletEvent holds info about an event occured within the repository.
type WalletEvent struct {
	EventType WalletEventType
	Address   string
	Balance   string
}

// WalletInfoRepository is the abstraction for any kind of database intended
// to persist the non-sensitive WalletInfo. There is at most one record.
type WalletInfoRepository interface {
	// SaveWalletInfo stores the wallet metadata if not yet existing,
	// ErrWalletAlreadyExists otherwise.
	// Generates a WalletCreated event if successfull.
	SaveWalletInfo(ctx context.Context, info *WalletInfo) error
	// GetWalletInfo returns the stored metadata or ErrWalletNotFound.
	GetWalletInfo(ctx context.Context) (*WalletInfo, error)
	// UpdateBalance updates the cached balance of the wallet.
	// Generates a WalletBalanceUpdated event if successfull.
	UpdateBalance(ctx context.Context, balance string, updatedAt int64) error
	// DeleteWalletInfo removes the metadata. It is a no-op if nothing is
	// stored.
	// Generates a WalletDeleted event if something was deleted.
	DeleteWalletInfo(ctx context.Context) error
}
