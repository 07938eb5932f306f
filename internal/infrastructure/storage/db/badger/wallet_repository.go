package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

// walletKey is the key of the only WalletInfo record.
const walletKey = "wallet"

type walletRepository struct {
	store  *badgerhold.Store
	broker *events.Broker

	log func(format string, a ...interface{})
}

func newWalletRepository(
	store *badgerhold.Store, broker *events.Broker,
) *walletRepository {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("wallet repository: %s", format)
		log.Debugf(format, a...)
	}
	return &walletRepository{store, broker, logFn}
}

func (r *walletRepository) SaveWalletInfo(
	ctx context.Context, info *domain.WalletInfo,
) error {
	if err := r.insertWalletInfo(ctx, info); err != nil {
		return err
	}

	go r.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletCreated,
		Address:   info.Address,
	})

	return nil
}

func (r *walletRepository) GetWalletInfo(
	ctx context.Context,
) (*domain.WalletInfo, error) {
	return r.getWalletInfo(ctx)
}

func (r *walletRepository) UpdateBalance(
	ctx context.Context, balance string, updatedAt int64,
) error {
	info, err := r.getWalletInfo(ctx)
	if err != nil {
		return err
	}
	if err := info.UpdateBalance(balance, updatedAt); err != nil {
		return err
	}
	if err := r.updateWalletInfo(ctx, info); err != nil {
		return err
	}

	go r.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletBalanceUpdated,
		Address:   info.Address,
		Balance:   info.Balance,
	})

	return nil
}

func (r *walletRepository) DeleteWalletInfo(ctx context.Context) error {
	info, err := r.getWalletInfo(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil
		}
		return err
	}

	if err := r.deleteWalletInfo(ctx); err != nil {
		return err
	}

	go r.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletDeleted,
		Address:   info.Address,
	})

	return nil
}

func (r *walletRepository) insertWalletInfo(
	ctx context.Context, info *domain.WalletInfo,
) error {
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(tx, walletKey, *info)
	} else {
		err = r.store.Insert(walletKey, *info)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrWalletAlreadyExists
		}
		return err
	}

	return nil
}

func (r *walletRepository) getWalletInfo(
	ctx context.Context,
) (*domain.WalletInfo, error) {
	var err error
	var info domain.WalletInfo

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, walletKey, &info)
	} else {
		err = r.store.Get(walletKey, &info)
	}

	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}

	return &info, nil
}

func (r *walletRepository) updateWalletInfo(
	ctx context.Context, info *domain.WalletInfo,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(tx, walletKey, *info)
	}
	return r.store.Update(walletKey, *info)
}

func (r *walletRepository) deleteWalletInfo(ctx context.Context) error {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxDelete(tx, walletKey, domain.WalletInfo{})
	} else {
		err = r.store.Delete(walletKey, domain.WalletInfo{})
	}
	if err != nil && err != badgerhold.ErrNotFound {
		return err
	}
	return nil
}

func (r *walletRepository) reset() {
	if err := r.deleteWalletInfo(context.Background()); err != nil {
		r.log("failed to reset: %s", err)
	}
}

func (r *walletRepository) close() {
	if err := r.store.Close(); err != nil {
		r.log("failed to close store: %s", err)
	}
}
