package inmemory

import (
	"context"
	"sync"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
)

type walletInmemoryStore struct {
	info *domain.WalletInfo
	lock *sync.RWMutex
}

type walletRepository struct {
	store  *walletInmemoryStore
	broker *events.Broker
}

func newWalletRepository(broker *events.Broker) *walletRepository {
	return &walletRepository{
		store: &walletInmemoryStore{
			lock: &sync.RWMutex{},
		},
		broker: broker,
	}
}

func (r *walletRepository) SaveWalletInfo(
	_ context.Context, info *domain.WalletInfo,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if r.store.info != nil {
		return domain.ErrWalletAlreadyExists
	}

	infoCopy := *info
	r.store.info = &infoCopy

	go r.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletCreated,
		Address:   info.Address,
	})

	return nil
}

func (r *walletRepository) GetWalletInfo(
	_ context.Context,
) (*domain.WalletInfo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	if r.store.info == nil {
		return nil, domain.ErrWalletNotFound
	}
	info := *r.store.info
	return &info, nil
}

func (r *walletRepository) UpdateBalance(
	_ context.Context, balance string, updatedAt int64,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if r.store.info == nil {
		return domain.ErrWalletNotFound
	}
	info := *r.store.info
	if err := info.UpdateBalance(balance, updatedAt); err != nil {
		return err
	}
	r.store.info = &info

	go r.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletBalanceUpdated,
		Address:   info.Address,
		Balance:   info.Balance,
	})

	return nil
}

func (r *walletRepository) DeleteWalletInfo(_ context.Context) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if r.store.info == nil {
		return nil
	}
	address := r.store.info.Address
	r.store.info = nil

	go r.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletDeleted,
		Address:   address,
	})

	return nil
}

func (r *walletRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.info = nil
}
