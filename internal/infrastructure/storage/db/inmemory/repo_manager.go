package inmemory

import (
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
)

type repoManager struct {
	walletRepository *walletRepository
	broker           *events.Broker
}

// NewRepoManager returns a volatile ports.RepoManager. Nothing survives
// Close.
func NewRepoManager() ports.RepoManager {
	broker := events.NewBroker("inmemory wallet repository", 0)
	return &repoManager{
		walletRepository: newWalletRepository(broker),
		broker:           broker,
	}
}

func (rm *repoManager) WalletInfoRepository() domain.WalletInfoRepository {
	return rm.walletRepository
}

func (rm *repoManager) RegisterHandlerForWalletEvent(
	eventType domain.WalletEventType, handler ports.WalletEventHandler,
) {
	rm.broker.Register(eventType, handler)
}

func (rm *repoManager) Reset() {
	rm.walletRepository.reset()
}

func (rm *repoManager) Close() {
	rm.broker.Close()
	rm.walletRepository.reset()
}
