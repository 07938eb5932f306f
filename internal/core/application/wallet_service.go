package application

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// WalletService owns the only key pair of the wallet and is responsible for
// its whole lifecycle:
//   - Create a new wallet from a random 12-words mnemonic.
//   - Import a wallet from a mnemonic or a raw private key.
//   - Sign transactions and messages with the stored private key.
//   - Reveal the mnemonic for backup.
//   - Export/restore a passphrase-encrypted backup.
//   - Delete the wallet.
//
// The wallet is either empty or active. It is active only if both its
// metadata and its private key are persisted. Creation writes the keystore
// first and the metadata last, deletion goes the other way round, so that the
// wallet never looks active without a retrievable key.
//
// Create, import, restore and delete are serialized, while signing and
// revealing can run concurrently among themselves.
// Secrets read from the keystore are wiped from memory once used.
type WalletService struct {
	repoManager      ports.RepoManager
	keystore         ports.Keystore
	cypher           domain.ISecretCypher
	minPassphraseLen int

	lock *sync.RWMutex
	log  func(format string, a ...interface{})
	warn func(format string, a ...interface{})
}

func NewWalletService(
	repoManager ports.RepoManager, keystore ports.Keystore,
	cypher domain.ISecretCypher, minPassphraseLen int,
) *WalletService {
	if minPassphraseLen <= 0 {
		minPassphraseLen = DefaultMinPassphraseLength
	}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("wallet service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("wallet service: %s", format)
		log.Warnf(format, a...)
	}
	return &WalletService{
		repoManager:      repoManager,
		keystore:         keystore,
		cypher:           cypher,
		minPassphraseLen: minPassphraseLen,
		lock:             &sync.RWMutex{},
		log:              logFn,
		warn:             warnFn,
	}
}

// CreateWallet generates a new mnemonic, derives its key pair and persists
// it. It returns the address of the new wallet. The mnemonic can be read
// afterwards only through RevealMnemonic.
func (ws *WalletService) CreateWallet(
	ctx context.Context, name string,
) (string, error) {
	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicArgs{})
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	defer mnemonic.Zero()

	key, err := wallet.NewKeyMaterialFromMnemonic(mnemonic)
	if err != nil {
		return "", err
	}
	defer key.Zero()

	if err := ws.persistWallet(ctx, key, name, domain.DefaultWalletName); err != nil {
		return "", err
	}
	ws.log("created wallet %s", key.Address())
	return key.Address(), nil
}

// ImportWallet restores a wallet from the given mnemonic. An invalid mnemonic
// is rejected before touching any storage.
func (ws *WalletService) ImportWallet(
	ctx context.Context, mnemonic, name string,
) (string, error) {
	words, err := wallet.ParseMnemonic(mnemonic)
	if err != nil {
		return "", err
	}
	defer words.Zero()

	key, err := wallet.NewKeyMaterialFromMnemonic(words)
	if err != nil {
		return "", err
	}
	defer key.Zero()

	if err := ws.persistWallet(ctx, key, name, domain.ImportedWalletName); err != nil {
		return "", err
	}
	ws.log("imported wallet %s from mnemonic", key.Address())
	return key.Address(), nil
}

// ImportPrivateKey restores a wallet from a hex encoded private key. Such a
// wallet has no mnemonic to reveal.
func (ws *WalletService) ImportPrivateKey(
	ctx context.Context, privateKey, name string,
) (string, error) {
	key, err := wallet.NewKeyMaterialFromHex(privateKey)
	if err != nil {
		return "", err
	}
	defer key.Zero()

	if err := ws.persistWallet(ctx, key, name, domain.ImportedWalletName); err != nil {
		return "", err
	}
	ws.log("imported wallet %s from private key", key.Address())
	return key.Address(), nil
}

// SignTransaction signs tx with the stored private key. The key is loaded,
// used and wiped within this call, whatever the outcome.
func (ws *WalletService) SignTransaction(
	ctx context.Context, tx wallet.UnsignedTransaction,
) (*wallet.SignedTransaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	ws.lock.RLock()
	defer ws.lock.RUnlock()

	key, info, err := ws.loadKey(ctx)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	signedTx, err := wallet.Sign(tx, key)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(signedTx.From, info.Address) {
		return nil, fmt.Errorf(
			"%w: stored key does not match wallet address", wallet.ErrSigningFailure,
		)
	}

	ws.log("signed tx %s with nonce %d", signedTx.Hash, signedTx.Nonce)
	return signedTx, nil
}

// SignMessage signs an arbitrary message with the personal message scheme.
func (ws *WalletService) SignMessage(
	ctx context.Context, message []byte,
) ([]byte, error) {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	key, _, err := ws.loadKey(ctx)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return wallet.SignMessage(message, key)
}

// VerifyMessage returns whether signature was produced over message by
// address.
func (ws *WalletService) VerifyMessage(
	message, signature []byte, address string,
) bool {
	return wallet.Verify(message, signature, address)
}

// RevealMnemonic returns the stored mnemonic for display. The caller must
// not log nor cache it, and should Zero it once displayed.
func (ws *WalletService) RevealMnemonic(
	ctx context.Context,
) (wallet.Mnemonic, error) {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	if _, err := ws.getActiveWallet(ctx); err != nil {
		return nil, err
	}

	mnemonic, err := ws.loadMnemonic(ctx)
	if err != nil {
		return nil, err
	}
	ws.log("mnemonic revealed")
	return mnemonic, nil
}

// DeleteWallet erases the metadata and every secret of the wallet. It
// returns domain.ErrWalletNotFound if the wallet is empty, after having
// wiped any leftover entry anyway.
func (ws *WalletService) DeleteWallet(ctx context.Context) error {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	info, err := ws.getActiveWallet(ctx)
	if err != nil && !errors.Is(err, domain.ErrWalletNotFound) {
		return err
	}

	if err := ws.repoManager.WalletInfoRepository().DeleteWalletInfo(
		ctx,
	); err != nil {
		return err
	}

	if err := ws.keystore.Delete(
		ctx, domain.PrivateKeyEntry, domain.MnemonicEntry,
	); err != nil {
		return keystoreFailure(err)
	}

	if info == nil {
		return domain.ErrWalletNotFound
	}
	ws.log("deleted wallet %s", info.Address)
	return nil
}

func (ws *WalletService) GetStatus(ctx context.Context) (WalletStatus, error) {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	info, err := ws.getActiveWallet(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return WalletStatus{Status: domain.WalletEmpty}, nil
		}
		return WalletStatus{}, err
	}
	return WalletStatus{Status: domain.WalletActive, Address: info.Address}, nil
}

func (ws *WalletService) GetInfo(ctx context.Context) (*WalletInfo, error) {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	info, err := ws.getActiveWallet(ctx)
	if err != nil {
		return nil, err
	}
	return (*WalletInfo)(info), nil
}

// ExportBackup encrypts the wallet secret with the given passphrase. The
// mnemonic is exported if available, the private key otherwise.
func (ws *WalletService) ExportBackup(
	ctx context.Context, passphrase []byte,
) (*domain.EncryptedBlob, error) {
	if len(passphrase) < ws.minPassphraseLen {
		return nil, errPassphraseTooShort(ws.minPassphraseLen)
	}

	ws.lock.RLock()
	defer ws.lock.RUnlock()

	info, err := ws.getActiveWallet(ctx)
	if err != nil {
		return nil, err
	}

	header := backupHeader{
		Name:    info.Name,
		Address: info.Address,
	}
	var secret []byte
	mnemonic, err := ws.loadMnemonic(ctx)
	switch {
	case err == nil:
		header.Kind = backupKindMnemonic
		secret = mnemonic.Bytes()
		mnemonic.Zero()
	case errors.Is(err, domain.ErrMnemonicUnavailable):
		key, _, err := ws.loadKey(ctx)
		if err != nil {
			return nil, err
		}
		raw := key.PrivateKeyBytes()
		header.Kind = backupKindPrivateKey
		secret = make([]byte, hex.EncodedLen(len(raw)))
		hex.Encode(secret, raw)
		clear(raw)
		key.Zero()
	default:
		return nil, err
	}
	defer clear(secret)

	plaintext, err := serializeBackup(header, secret)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	blob, err := ws.cypher.Encrypt(plaintext, passphrase)
	if err != nil {
		return nil, err
	}
	ws.log("exported %s backup of wallet %s", header.Kind, info.Address)
	return blob, nil
}

// RestoreBackup decrypts a blob produced by ExportBackup and imports the
// wallet it contains. A wrong passphrase or a corrupted blob both yield
// domain.ErrDecryptionFailed.
func (ws *WalletService) RestoreBackup(
	ctx context.Context, blob *domain.EncryptedBlob, passphrase []byte,
	name string,
) (string, error) {
	plaintext, err := ws.cypher.Decrypt(blob, passphrase)
	if err != nil {
		return "", domain.ErrDecryptionFailed
	}
	defer clear(plaintext)

	payload, err := parseBackupPayload(plaintext)
	if err != nil {
		return "", err
	}

	var key *wallet.KeyMaterial
	switch payload.Kind {
	case backupKindMnemonic:
		words, err := wallet.ParseMnemonic(payload.Secret)
		if err != nil {
			return "", err
		}
		key, err = wallet.NewKeyMaterialFromMnemonic(words)
		words.Zero()
		if err != nil {
			return "", err
		}
	default:
		key, err = wallet.NewKeyMaterialFromHex(payload.Secret)
		if err != nil {
			return "", err
		}
	}
	defer key.Zero()

	if payload.Address != "" && !strings.EqualFold(payload.Address, key.Address()) {
		return "", domain.ErrDecryptionFailed
	}
	if strings.TrimSpace(name) == "" {
		name = payload.Name
	}

	if err := ws.persistWallet(ctx, key, name, domain.ImportedWalletName); err != nil {
		return "", err
	}
	ws.log("restored wallet %s from backup", key.Address())
	return key.Address(), nil
}

func (ws *WalletService) RegisterHandlerForWalletEvent(
	eventType domain.WalletEventType, handler ports.WalletEventHandler,
) {
	ws.repoManager.RegisterHandlerForWalletEvent(eventType, handler)
}

// persistWallet moves the wallet from empty to active. Any failure rolls back
// the keystore writes so that the wallet is left empty.
func (ws *WalletService) persistWallet(
	ctx context.Context, key *wallet.KeyMaterial, name, defaultName string,
) error {
	info, err := domain.NewWalletInfo(key.Address(), name, defaultName)
	if err != nil {
		return err
	}

	ws.lock.Lock()
	defer ws.lock.Unlock()

	if _, err := ws.getActiveWallet(ctx); err == nil {
		return domain.ErrWalletAlreadyExists
	} else if !errors.Is(err, domain.ErrWalletNotFound) {
		return err
	}
	// Metadata without a key is a leftover of an interrupted deletion.
	if err := ws.repoManager.WalletInfoRepository().DeleteWalletInfo(
		ctx,
	); err != nil {
		return err
	}

	rollback := func() {
		if err := ws.keystore.Delete(
			ctx, domain.PrivateKeyEntry, domain.MnemonicEntry,
		); err != nil {
			ws.warn("failed to roll back keystore entries: %s", err)
		}
	}

	privateKey := key.PrivateKeyBytes()
	defer clear(privateKey)
	if err := ws.keystore.Put(ctx, domain.PrivateKeyEntry, privateKey); err != nil {
		rollback()
		return keystoreFailure(err)
	}

	if key.HasMnemonic() {
		mnemonic := []byte(key.Mnemonic().String())
		defer clear(mnemonic)
		if err := ws.keystore.Put(ctx, domain.MnemonicEntry, mnemonic); err != nil {
			rollback()
			return keystoreFailure(err)
		}
	} else if err := ws.keystore.Delete(ctx, domain.MnemonicEntry); err != nil {
		rollback()
		return keystoreFailure(err)
	}

	if err := ws.repoManager.WalletInfoRepository().SaveWalletInfo(
		ctx, info,
	); err != nil {
		rollback()
		return err
	}
	return nil
}

// getActiveWallet returns the wallet metadata if the wallet is active,
// domain.ErrWalletNotFound otherwise. Callers must hold the lock.
func (ws *WalletService) getActiveWallet(
	ctx context.Context,
) (*domain.WalletInfo, error) {
	info, err := ws.repoManager.WalletInfoRepository().GetWalletInfo(ctx)
	if err != nil {
		return nil, err
	}

	privateKey, err := ws.keystore.Get(ctx, domain.PrivateKeyEntry)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			ws.warn("found wallet metadata without private key")
			return nil, domain.ErrWalletNotFound
		}
		return nil, keystoreFailure(err)
	}
	clear(privateKey)

	return info, nil
}

// loadKey reads the private key of the active wallet. The caller must Zero
// the returned KeyMaterial.
func (ws *WalletService) loadKey(
	ctx context.Context,
) (*wallet.KeyMaterial, *domain.WalletInfo, error) {
	info, err := ws.repoManager.WalletInfoRepository().GetWalletInfo(ctx)
	if err != nil {
		return nil, nil, err
	}

	privateKey, err := ws.keystore.Get(ctx, domain.PrivateKeyEntry)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, nil, domain.ErrWalletNotFound
		}
		return nil, nil, keystoreFailure(err)
	}
	defer clear(privateKey)

	key, err := wallet.NewKeyMaterialFromPrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: stored private key is invalid", domain.ErrKeystoreFailure)
	}
	return key, info, nil
}

func (ws *WalletService) loadMnemonic(ctx context.Context) (wallet.Mnemonic, error) {
	buf, err := ws.keystore.Get(ctx, domain.MnemonicEntry)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, domain.ErrMnemonicUnavailable
		}
		return nil, keystoreFailure(err)
	}
	defer clear(buf)

	mnemonic, err := wallet.ParseMnemonic(string(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: stored mnemonic is invalid", domain.ErrKeystoreFailure)
	}
	return mnemonic, nil
}

func keystoreFailure(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrKeystoreFailure, err)
}

func errPassphraseTooShort(minLen int) error {
	return fmt.Errorf(
		"%w: must be at least %d characters", domain.ErrPassphraseTooShort, minLen,
	)
}
