package postgresdb

import (
	"context"
	"errors"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	// walletKey is the id of the only wallet_info row.
	walletKey = "wallet"
	// uniqueViolation is the postgres error code for unique constraint
	// violation.
	uniqueViolation = "23505"

	insertWalletInfoQuery = `INSERT INTO wallet_info (
		id, address, name, balance, balance_updated_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6)`
	selectWalletInfoQuery = `SELECT address, name, balance, balance_updated_at, created_at
		FROM wallet_info WHERE id = $1`
	updateBalanceQuery = `UPDATE wallet_info
		SET balance = $2, balance_updated_at = $3 WHERE id = $1`
	deleteWalletInfoQuery = `DELETE FROM wallet_info WHERE id = $1 RETURNING address`
)

type walletRepositoryPg struct {
	pgxPool *pgxpool.Pool
	broker  *events.Broker
}

func newWalletRepositoryPg(
	pgxPool *pgxpool.Pool, broker *events.Broker,
) *walletRepositoryPg {
	return &walletRepositoryPg{pgxPool, broker}
}

func (w *walletRepositoryPg) SaveWalletInfo(
	ctx context.Context, info *domain.WalletInfo,
) error {
	if _, err := w.pgxPool.Exec(
		ctx, insertWalletInfoQuery, walletKey, info.Address, info.Name,
		info.Balance, info.BalanceUpdatedAt, info.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrWalletAlreadyExists
		}
		return err
	}

	go w.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletCreated,
		Address:   info.Address,
	})

	return nil
}

func (w *walletRepositoryPg) GetWalletInfo(
	ctx context.Context,
) (*domain.WalletInfo, error) {
	return w.getWalletInfo(ctx, w.pgxPool)
}

func (w *walletRepositoryPg) UpdateBalance(
	ctx context.Context, balance string, updatedAt int64,
) error {
	var info *domain.WalletInfo
	if err := w.pgxPool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var err error
		info, err = w.getWalletInfo(ctx, tx)
		if err != nil {
			return err
		}
		if err := info.UpdateBalance(balance, updatedAt); err != nil {
			return err
		}
		_, err = tx.Exec(
			ctx, updateBalanceQuery, walletKey, info.Balance, info.BalanceUpdatedAt,
		)
		return err
	}); err != nil {
		return err
	}

	go w.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletBalanceUpdated,
		Address:   info.Address,
		Balance:   info.Balance,
	})

	return nil
}

func (w *walletRepositoryPg) DeleteWalletInfo(ctx context.Context) error {
	var address string
	if err := w.pgxPool.QueryRow(
		ctx, deleteWalletInfoQuery, walletKey,
	).Scan(&address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	go w.broker.Publish(domain.WalletEvent{
		EventType: domain.WalletDeleted,
		Address:   address,
	})

	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (w *walletRepositoryPg) getWalletInfo(
	ctx context.Context, q querier,
) (*domain.WalletInfo, error) {
	info := &domain.WalletInfo{}
	if err := q.QueryRow(ctx, selectWalletInfoQuery, walletKey).Scan(
		&info.Address, &info.Name, &info.Balance, &info.BalanceUpdatedAt,
		&info.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return info, nil
}
