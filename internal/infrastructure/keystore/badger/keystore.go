package badgerkeystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	scryptaes "github.com/gauss-network/gauss-wallet/internal/infrastructure/secret-cypher/scrypt-aes"
	log "github.com/sirupsen/logrus"
)

const (
	saltFileName = "keystore.salt"

	keyRotationDuration = 7 * 24 * time.Hour
	indexCacheSize      = 16 << 20
	gcInterval          = 30 * time.Minute
)

// keystore persists secrets in a badger db encrypted at rest with AES-256.
// The encryption key is derived from a password and a salt persisted next
// to the db.
type keystore struct {
	db *badger.DB
	// badger keeps a reference to the key to encrypt rotated data keys, it
	// is wiped only once the db is closed.
	encryptionKey []byte
	chQuit        chan struct{}
}

// NewKeystore opens (or creates) the encrypted keystore in dir. An empty dir
// opens an in-memory, unencrypted store, to be used only for testing
// purposes.
func NewKeystore(
	dir string, password []byte, logger badger.Logger,
) (ports.Keystore, error) {
	ks, err := newKeystore(dir, password, keyRotationDuration, logger)
	if err != nil {
		return nil, err
	}
	return ks, nil
}

func newKeystore(
	dir string, password []byte, rotation time.Duration, logger badger.Logger,
) (*keystore, error) {
	isInMemory := len(dir) <= 0

	var key []byte
	opts := badger.DefaultOptions("")
	if isInMemory {
		opts.InMemory = true
	} else {
		if len(password) <= 0 {
			return nil, fmt.Errorf("missing keystore password")
		}

		salt, err := loadOrCreateSalt(filepath.Join(dir, saltFileName))
		if err != nil {
			return nil, fmt.Errorf("loading keystore salt: %w", err)
		}
		key, err = scryptaes.DeriveKey(password, salt)
		if err != nil {
			return nil, fmt.Errorf("deriving keystore key: %w", err)
		}

		opts = badger.DefaultOptions(dir)
		opts.EncryptionKey = key
		opts.EncryptionKeyRotationDuration = rotation
		opts.IndexCacheSize = indexCacheSize
		opts.Compression = options.ZSTD
	}
	opts.Logger = logger

	db, err := badger.Open(opts)
	if err != nil {
		clear(key)
		if errors.Is(err, badger.ErrEncryptionKeyMismatch) {
			return nil, fmt.Errorf("wrong keystore password")
		}
		return nil, fmt.Errorf("opening keystore: %w", err)
	}

	ks := &keystore{db, key, make(chan struct{})}
	if !isInMemory {
		go ks.runValueLogGC()
	}
	return ks, nil
}

func (k *keystore) Put(_ context.Context, key string, value []byte) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), append([]byte{}, value...))
	})
}

func (k *keystore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	if err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return value, nil
}

// Delete removes every key within a single badger transaction.
func (k *keystore) Delete(_ context.Context, keys ...string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (k *keystore) Close() {
	close(k.chQuit)
	if err := k.db.Close(); err != nil {
		log.Warnf("keystore: failed to close db: %s", err)
	}
	clear(k.encryptionKey)
}

func (k *keystore) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-k.chQuit:
			return
		case <-ticker.C:
			if err := k.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				log.Warnf("keystore: garbage collector: %s", err)
			}
		}
	}
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	salt, err = scryptaes.NewSalt()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, err
	}
	return salt, nil
}
