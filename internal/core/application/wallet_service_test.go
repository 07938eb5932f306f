package application_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/gauss-network/gauss-wallet/internal/core/application"
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	keystore "github.com/gauss-network/gauss-wallet/internal/infrastructure/keystore/inmemory"
	scryptaes "github.com/gauss-network/gauss-wallet/internal/infrastructure/secret-cypher/scrypt-aes"
	dbbadger "github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/badger"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/inmemory"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	ctx                   = context.Background()
	testMnemonic          = "test test test test test test test test test test test junk"
	testPrivateKey        = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress           = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	recipient             = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	passphrase            = []byte("backup passphrase")
	errSomethingWentWrong = fmt.Errorf("something went wrong")
)

type testServices struct {
	walletSvc   *application.WalletService
	keystore    ports.Keystore
	repoManager ports.RepoManager
}

func newTestWalletService(t *testing.T) *testServices {
	repoManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	ks := keystore.NewKeystore()
	t.Cleanup(func() {
		repoManager.Close()
		ks.Close()
	})

	return &testServices{
		walletSvc: application.NewWalletService(
			repoManager, ks, scryptaes.NewCypherWithParams(1<<10, 8, 1), 0,
		),
		keystore:    ks,
		repoManager: repoManager,
	}
}

func TestCreateWallet(t *testing.T) {
	t.Parallel()

	svc := newTestWalletService(t)
	walletSvc := svc.walletSvc

	status, err := walletSvc.GetStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.IsActive())

	info, err := walletSvc.GetInfo(ctx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	require.Nil(t, info)

	address, err := walletSvc.CreateWallet(ctx, "")
	require.NoError(t, err)
	require.True(t, wallet.IsValidAddress(address))

	status, err = walletSvc.GetStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.IsActive())
	require.Equal(t, address, status.Address)

	info, err = walletSvc.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, address, info.Address)
	require.Equal(t, domain.DefaultWalletName, info.Name)

	mnemonic, err := walletSvc.RevealMnemonic(ctx)
	require.NoError(t, err)
	require.Len(t, mnemonic, wallet.MnemonicWordCount)
	require.True(t, wallet.ValidateMnemonic(mnemonic))

	key, err := wallet.NewKeyMaterialFromMnemonic(mnemonic)
	require.NoError(t, err)
	require.Equal(t, address, key.Address())

	otherAddress, err := walletSvc.CreateWallet(ctx, "other")
	require.ErrorIs(t, err, domain.ErrWalletAlreadyExists)
	require.Empty(t, otherAddress)

	// The existing wallet is untouched.
	revealed, err := walletSvc.RevealMnemonic(ctx)
	require.NoError(t, err)
	require.Equal(t, mnemonic, revealed)
}

func TestImportWallet(t *testing.T) {
	t.Parallel()

	t.Run("from mnemonic", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc

		address, err := walletSvc.ImportWallet(ctx, "  "+testMnemonic+"\n", "")
		require.NoError(t, err)
		require.Equal(t, testAddress, address)

		info, err := walletSvc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.ImportedWalletName, info.Name)

		mnemonic, err := walletSvc.RevealMnemonic(ctx)
		require.NoError(t, err)
		require.Equal(t, testMnemonic, mnemonic.String())
	})

	t.Run("from private key", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc

		address, err := walletSvc.ImportPrivateKey(ctx, "0x"+testPrivateKey, "hot")
		require.NoError(t, err)
		require.Equal(t, testAddress, address)

		info, err := walletSvc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, "hot", info.Name)

		mnemonic, err := walletSvc.RevealMnemonic(ctx)
		require.ErrorIs(t, err, domain.ErrMnemonicUnavailable)
		require.Nil(t, mnemonic)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		svc := newTestWalletService(t)

		tests := []struct {
			mnemonic      string
			expectedError error
		}{
			{"invalid one two three four five six seven eight nine ten", wallet.ErrInvalidMnemonic},
			{"", wallet.ErrInvalidMnemonic},
			{strings.Replace(testMnemonic, "junk", "test", 1), wallet.ErrInvalidMnemonic},
			{strings.ToUpper(testMnemonic), wallet.ErrInvalidMnemonic},
		}

		for _, tt := range tests {
			address, err := svc.walletSvc.ImportWallet(ctx, tt.mnemonic, "")
			require.ErrorIs(t, err, tt.expectedError)
			require.Equal(t, wallet.ErrInvalidMnemonic.Error(), err.Error())
			require.Empty(t, address)
		}

		for _, key := range []string{"", "0x00", "zz", strings.Repeat("ff", 32)} {
			address, err := svc.walletSvc.ImportPrivateKey(ctx, key, "")
			require.Error(t, err)
			require.Empty(t, address)
		}

		requireEmptyWallet(t, svc)
	})
}

func TestCreateWalletRollback(t *testing.T) {
	t.Parallel()

	t.Run("keystore failure", func(t *testing.T) {
		t.Parallel()

		svc := newTestWalletService(t)
		ks := newFaultyKeystore(svc.keystore)
		ks.On("Put", domain.PrivateKeyEntry).Return(nil)
		ks.On("Put", domain.MnemonicEntry).Return(errSomethingWentWrong)
		svc.walletSvc = application.NewWalletService(
			svc.repoManager, ks, scryptaes.NewCypherWithParams(1<<10, 8, 1), 0,
		)

		address, err := svc.walletSvc.CreateWallet(ctx, "")
		require.ErrorIs(t, err, domain.ErrKeystoreFailure)
		require.ErrorIs(t, err, errSomethingWentWrong)
		require.Empty(t, address)
		ks.AssertNumberOfCalls(t, "Put", 2)

		requireEmptyWallet(t, svc)
	})

	t.Run("metadata failure", func(t *testing.T) {
		t.Parallel()

		svc := newTestWalletService(t)
		rm := newFaultyRepoManager(svc.repoManager)
		rm.repo.On("SaveWalletInfo", mock.Anything).Return(errSomethingWentWrong)
		svc.walletSvc = application.NewWalletService(
			rm, svc.keystore, scryptaes.NewCypherWithParams(1<<10, 8, 1), 0,
		)

		address, err := svc.walletSvc.ImportWallet(ctx, testMnemonic, "")
		require.ErrorIs(t, err, errSomethingWentWrong)
		require.Empty(t, address)

		requireEmptyWallet(t, svc)
	})
}

func TestSignTransaction(t *testing.T) {
	t.Parallel()

	svc := newTestWalletService(t)
	walletSvc := svc.walletSvc
	tx := wallet.UnsignedTransaction{
		To:     recipient,
		Amount: "1.5",
		Fee:    "0.0001",
		Nonce:  0,
	}

	signedTx, err := walletSvc.SignTransaction(ctx, tx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	require.Nil(t, signedTx)

	_, err = walletSvc.ImportWallet(ctx, testMnemonic, "")
	require.NoError(t, err)

	signedTx, err = walletSvc.SignTransaction(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, testAddress, signedTx.From)
	require.True(t, wallet.VerifyTransaction(signedTx))

	encoding, err := tx.Encode()
	require.NoError(t, err)
	require.True(t, walletSvc.VerifyMessage(encoding, signedTx.Signature, testAddress))

	invalidTx := tx
	invalidTx.To = "0xabc"
	signedTx, err = walletSvc.SignTransaction(ctx, invalidTx)
	require.ErrorIs(t, err, wallet.ErrInvalidAddress)
	require.Nil(t, signedTx)

	message := []byte("hello gauss")
	signature, err := walletSvc.SignMessage(ctx, message)
	require.NoError(t, err)
	require.True(t, walletSvc.VerifyMessage(message, signature, strings.ToLower(testAddress)))
	require.False(t, walletSvc.VerifyMessage(message, signature, recipient))

	err = walletSvc.DeleteWallet(ctx)
	require.NoError(t, err)

	signedTx, err = walletSvc.SignTransaction(ctx, tx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	require.Nil(t, signedTx)

	signature, err = walletSvc.SignMessage(ctx, message)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	require.Nil(t, signature)
}

func TestDeleteWallet(t *testing.T) {
	t.Parallel()

	svc := newTestWalletService(t)
	walletSvc := svc.walletSvc

	err := walletSvc.DeleteWallet(ctx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = walletSvc.CreateWallet(ctx, "")
	require.NoError(t, err)

	err = walletSvc.DeleteWallet(ctx)
	require.NoError(t, err)
	requireEmptyWallet(t, svc)

	mnemonic, err := walletSvc.RevealMnemonic(ctx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	require.Nil(t, mnemonic)

	err = walletSvc.DeleteWallet(ctx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	// The slot is free again.
	address, err := walletSvc.ImportWallet(ctx, testMnemonic, "")
	require.NoError(t, err)
	require.Equal(t, testAddress, address)
}

func TestLeftoverEntries(t *testing.T) {
	t.Parallel()

	t.Run("metadata without key", func(t *testing.T) {
		t.Parallel()

		svc := newTestWalletService(t)
		info, err := domain.NewWalletInfo(testAddress, "", domain.DefaultWalletName)
		require.NoError(t, err)
		err = svc.repoManager.WalletInfoRepository().SaveWalletInfo(ctx, info)
		require.NoError(t, err)

		status, err := svc.walletSvc.GetStatus(ctx)
		require.NoError(t, err)
		require.False(t, status.IsActive())

		address, err := svc.walletSvc.ImportPrivateKey(ctx, testPrivateKey, "")
		require.NoError(t, err)
		require.Equal(t, testAddress, address)
	})

	t.Run("key without metadata", func(t *testing.T) {
		t.Parallel()

		svc := newTestWalletService(t)
		err := svc.keystore.Put(ctx, domain.PrivateKeyEntry, []byte("stale"))
		require.NoError(t, err)
		err = svc.keystore.Put(ctx, domain.MnemonicEntry, []byte("stale"))
		require.NoError(t, err)

		status, err := svc.walletSvc.GetStatus(ctx)
		require.NoError(t, err)
		require.False(t, status.IsActive())

		err = svc.walletSvc.DeleteWallet(ctx)
		require.ErrorIs(t, err, domain.ErrWalletNotFound)
		requireEmptyWallet(t, svc)
	})
}

func TestBackup(t *testing.T) {
	t.Parallel()

	t.Run("mnemonic", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc

		blob, err := walletSvc.ExportBackup(ctx, passphrase)
		require.ErrorIs(t, err, domain.ErrWalletNotFound)
		require.Nil(t, blob)

		_, err = walletSvc.ImportWallet(ctx, testMnemonic, "savings")
		require.NoError(t, err)

		blob, err = walletSvc.ExportBackup(ctx, []byte("short"))
		require.ErrorIs(t, err, domain.ErrPassphraseTooShort)
		require.Nil(t, blob)

		blob, err = walletSvc.ExportBackup(ctx, passphrase)
		require.NoError(t, err)
		require.NotNil(t, blob)

		otherBlob, err := walletSvc.ExportBackup(ctx, passphrase)
		require.NoError(t, err)
		require.NotEqual(t, blob.Ciphertext, otherBlob.Ciphertext)

		address, err := walletSvc.RestoreBackup(ctx, blob, passphrase, "")
		require.ErrorIs(t, err, domain.ErrWalletAlreadyExists)
		require.Empty(t, address)

		err = walletSvc.DeleteWallet(ctx)
		require.NoError(t, err)

		address, err = walletSvc.RestoreBackup(ctx, blob, []byte("wrong passphrase"), "")
		require.Equal(t, domain.ErrDecryptionFailed, err)
		require.Empty(t, address)

		address, err = walletSvc.RestoreBackup(ctx, blob, passphrase, "")
		require.NoError(t, err)
		require.Equal(t, testAddress, address)

		info, err := walletSvc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, "savings", info.Name)

		mnemonic, err := walletSvc.RevealMnemonic(ctx)
		require.NoError(t, err)
		require.Equal(t, testMnemonic, mnemonic.String())
	})

	t.Run("private key", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc

		_, err := walletSvc.ImportPrivateKey(ctx, testPrivateKey, "")
		require.NoError(t, err)

		blob, err := walletSvc.ExportBackup(ctx, passphrase)
		require.NoError(t, err)

		err = walletSvc.DeleteWallet(ctx)
		require.NoError(t, err)

		address, err := walletSvc.RestoreBackup(ctx, blob, passphrase, "restored")
		require.NoError(t, err)
		require.Equal(t, testAddress, address)

		info, err := walletSvc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, "restored", info.Name)
	})

	t.Run("plaintext wiped", func(t *testing.T) {
		t.Parallel()

		svc := newTestWalletService(t)
		cypher := &recordingCypher{
			ISecretCypher: scryptaes.NewCypherWithParams(1<<10, 8, 1),
		}
		walletSvc := application.NewWalletService(
			svc.repoManager, svc.keystore, cypher, 0,
		)

		for _, importFn := range []func() error{
			func() error {
				_, err := walletSvc.ImportWallet(ctx, testMnemonic, "")
				return err
			},
			func() error {
				_, err := walletSvc.ImportPrivateKey(ctx, testPrivateKey, "")
				return err
			},
		} {
			require.NoError(t, importFn())

			blob, err := walletSvc.ExportBackup(ctx, passphrase)
			require.NoError(t, err)
			require.NotNil(t, blob)
			require.NotEmpty(t, cypher.plaintext)
			require.Equal(t, make([]byte, len(cypher.plaintext)), cypher.plaintext)

			require.NoError(t, walletSvc.DeleteWallet(ctx))
		}
	})

	t.Run("corrupted", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc

		_, err := walletSvc.ImportWallet(ctx, testMnemonic, "")
		require.NoError(t, err)
		blob, err := walletSvc.ExportBackup(ctx, passphrase)
		require.NoError(t, err)
		err = walletSvc.DeleteWallet(ctx)
		require.NoError(t, err)

		corrupted := *blob
		corrupted.Ciphertext = append([]byte{}, blob.Ciphertext...)
		corrupted.Ciphertext[0] ^= 0xff

		address, err := walletSvc.RestoreBackup(ctx, &corrupted, passphrase, "")
		require.Equal(t, domain.ErrDecryptionFailed, err)
		require.Empty(t, address)

		address, err = walletSvc.RestoreBackup(ctx, nil, passphrase, "")
		require.Equal(t, domain.ErrDecryptionFailed, err)
		require.Empty(t, address)
	})
}

func TestConcurrency(t *testing.T) {
	t.Parallel()

	t.Run("create", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc

		var wg sync.WaitGroup
		chErr := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := walletSvc.CreateWallet(ctx, "")
				chErr <- err
			}()
		}
		wg.Wait()
		close(chErr)

		succeeded := 0
		for err := range chErr {
			if err == nil {
				succeeded++
				continue
			}
			require.ErrorIs(t, err, domain.ErrWalletAlreadyExists)
		}
		require.Equal(t, 1, succeeded)
	})

	t.Run("sign and reveal", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc
		_, err := walletSvc.ImportWallet(ctx, testMnemonic, "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		chErr := make(chan error, 40)
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func(nonce uint64) {
				defer wg.Done()
				tx, err := walletSvc.SignTransaction(ctx, wallet.UnsignedTransaction{
					To: recipient, Amount: "1", Fee: "0.0001", Nonce: nonce,
				})
				if err == nil && !wallet.VerifyTransaction(tx) {
					err = errors.New("invalid signature")
				}
				chErr <- err
			}(uint64(i))
			go func() {
				defer wg.Done()
				mnemonic, err := walletSvc.RevealMnemonic(ctx)
				if err == nil && mnemonic.String() != testMnemonic {
					err = errors.New("unexpected mnemonic")
				}
				chErr <- err
			}()
		}
		wg.Wait()
		close(chErr)

		for err := range chErr {
			require.NoError(t, err)
		}
	})

	t.Run("sign while deleting", func(t *testing.T) {
		t.Parallel()

		walletSvc := newTestWalletService(t).walletSvc
		_, err := walletSvc.ImportWallet(ctx, testMnemonic, "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		chErr := make(chan error, 21)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tx, err := walletSvc.SignTransaction(ctx, wallet.UnsignedTransaction{
					To: recipient, Amount: "1", Fee: "0.0001",
				})
				if err == nil && !wallet.VerifyTransaction(tx) {
					err = errors.New("invalid signature")
				}
				chErr <- err
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			chErr <- walletSvc.DeleteWallet(ctx)
		}()
		wg.Wait()
		close(chErr)

		for err := range chErr {
			if err != nil {
				require.ErrorIs(t, err, domain.ErrWalletNotFound)
			}
		}
	})
}

func TestWalletServiceWithInmemoryRepo(t *testing.T) {
	t.Parallel()

	repoManager := inmemory.NewRepoManager()
	ks := keystore.NewKeystore()
	defer repoManager.Close()
	defer ks.Close()

	walletSvc := application.NewWalletService(
		repoManager, ks, scryptaes.NewCypherWithParams(1<<10, 8, 1), 0,
	)

	chEvents := make(chan domain.WalletEvent, 2)
	walletSvc.RegisterHandlerForWalletEvent(domain.WalletCreated, func(event domain.WalletEvent) {
		chEvents <- event
	})
	walletSvc.RegisterHandlerForWalletEvent(domain.WalletDeleted, func(event domain.WalletEvent) {
		chEvents <- event
	})

	address, err := walletSvc.ImportWallet(ctx, testMnemonic, "")
	require.NoError(t, err)
	event := <-chEvents
	require.Equal(t, domain.WalletCreated, event.EventType)
	require.Equal(t, address, event.Address)

	err = walletSvc.DeleteWallet(ctx)
	require.NoError(t, err)
	event = <-chEvents
	require.Equal(t, domain.WalletDeleted, event.EventType)
	require.Equal(t, address, event.Address)
}

func requireEmptyWallet(t *testing.T, svc *testServices) {
	for _, key := range []string{domain.PrivateKeyEntry, domain.MnemonicEntry} {
		value, err := svc.keystore.Get(ctx, key)
		require.ErrorIs(t, err, domain.ErrEntryNotFound)
		require.Nil(t, value)
	}

	info, err := svc.repoManager.WalletInfoRepository().GetWalletInfo(ctx)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	require.Nil(t, info)

	status, err := svc.walletSvc.GetStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.IsActive())
}
