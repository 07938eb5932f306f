package dbbadger

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	walletDbDirName  = "wallet"
	eventsBufferSize = 10
	gcInterval       = 30 * time.Minute
	gcDiscardRatio   = 0.5
)

// repoManager owns the badgerhold store of the wallet metadata and the
// broker of its events.
type repoManager struct {
	walletRepository *walletRepository
	broker           *events.Broker
}

// NewRepoManager opens (or creates) the wallet metadata db under baseDbDir.
// An empty baseDbDir opens an in-memory db, to be used only for testing
// purposes.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var walletDbDir string
	if len(baseDbDir) > 0 {
		walletDbDir = filepath.Join(baseDbDir, walletDbDirName)
	}

	walletDb, err := openStore(walletDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallet db: %w", err)
	}

	broker := events.NewBroker("badger wallet repository", eventsBufferSize)
	return &repoManager{
		walletRepository: newWalletRepository(walletDb, broker),
		broker:           broker,
	}, nil
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
	rm.walletRepository.close()
}

func openStore(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		go runValueLogGC(store.Badger())
	}
	return store, nil
}

// runValueLogGC returns once db is closed.
func runValueLogGC(db *badger.DB) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for range ticker.C {
		if db.IsClosed() {
			return
		}
		if err := db.RunValueLogGC(gcDiscardRatio); err != nil &&
			!errors.Is(err, badger.ErrNoRewrite) {
			log.Warnf("wallet db: value log gc: %s", err)
		}
	}
}
