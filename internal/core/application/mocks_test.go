package application_test

import (
	"context"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/stretchr/testify/mock"
)

// ports.Ledger
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) GetNonce(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockLedger) Broadcast(
	ctx context.Context, tx *wallet.SignedTransaction,
) (string, error) {
	args := m.Called(ctx, tx)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetBalance(
	ctx context.Context, address string,
) (*ports.Balance, error) {
	args := m.Called(ctx, address)

	var res *ports.Balance
	if a := args.Get(0); a != nil {
		res = a.(*ports.Balance)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetTransactionHistory(
	ctx context.Context, address string, page, limit int,
) (*ports.TransactionPage, error) {
	args := m.Called(ctx, address, page, limit)

	var res *ports.TransactionPage
	if a := args.Get(0); a != nil {
		res = a.(*ports.TransactionPage)
	}
	return res, args.Error(1)
}

// faultyKeystore wraps a working ports.Keystore and lets tests make Put
// fail for specific entries.
type faultyKeystore struct {
	ports.Keystore
	mock.Mock
}

func newFaultyKeystore(ks ports.Keystore) *faultyKeystore {
	return &faultyKeystore{Keystore: ks}
}

func (k *faultyKeystore) Put(ctx context.Context, key string, value []byte) error {
	args := k.Called(key)
	if err := args.Error(0); err != nil {
		return err
	}
	return k.Keystore.Put(ctx, key, value)
}

// faultyRepoManager wraps a working ports.RepoManager and lets tests make
// SaveWalletInfo fail.
type faultyRepoManager struct {
	ports.RepoManager
	repo *faultyWalletRepository
}

func newFaultyRepoManager(rm ports.RepoManager) *faultyRepoManager {
	return &faultyRepoManager{
		RepoManager: rm,
		repo:        &faultyWalletRepository{WalletInfoRepository: rm.WalletInfoRepository()},
	}
}

func (rm *faultyRepoManager) WalletInfoRepository() domain.WalletInfoRepository {
	return rm.repo
}

type faultyWalletRepository struct {
	domain.WalletInfoRepository
	mock.Mock
}

func (r *faultyWalletRepository) SaveWalletInfo(
	ctx context.Context, info *domain.WalletInfo,
) error {
	args := r.Called(info.Address)
	if err := args.Error(0); err != nil {
		return err
	}
	return r.WalletInfoRepository.SaveWalletInfo(ctx, info)
}

// recordingCypher keeps a reference to the last plaintext it encrypted.
type recordingCypher struct {
	domain.ISecretCypher
	plaintext []byte
}

func (c *recordingCypher) Encrypt(
	plaintext, passphrase []byte,
) (*domain.EncryptedBlob, error) {
	c.plaintext = plaintext
	return c.ISecretCypher.Encrypt(plaintext, passphrase)
}
