package ports

import (
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
)

// WalletEventHandler is run in its own goroutine for every matching event.
type WalletEventHandler func(event domain.WalletEvent)

// RepoManager owns the wallet metadata store of one concrete backend
// (inmemory, badger or postgres) and the events its repository emits.
type RepoManager interface {
	WalletInfoRepository() domain.WalletInfoRepository

	// RegisterHandlerForWalletEvent subscribes handler to eventType. Handlers
	// can't be removed and are dropped on Close.
	RegisterHandlerForWalletEvent(
		eventType domain.WalletEventType, handler WalletEventHandler,
	)

	// Reset drops any persisted metadata. Meant for tests.
	Reset()

	// Close stops event dispatching and releases the backend.
	Close()
}
