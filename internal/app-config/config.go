package appconfig

import (
	"fmt"
	"time"

	"github.com/gauss-network/gauss-wallet/internal/config"
	"github.com/gauss-network/gauss-wallet/internal/core/application"
	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	badgerkeystore "github.com/gauss-network/gauss-wallet/internal/infrastructure/keystore/badger"
	inmemorykeystore "github.com/gauss-network/gauss-wallet/internal/infrastructure/keystore/inmemory"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/ledger"
	scryptaes "github.com/gauss-network/gauss-wallet/internal/infrastructure/secret-cypher/scrypt-aes"
	dbbadger "github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/badger"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/postgres"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

// AppConfig is the struct holding all configuration options for every
// application service (wallet and transaction).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - KeystoreType - (required) One of the supported keystore types.
//   - KeystoreConfig - (optional) Custom config args for the keystore based on its type.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - LedgerUrl - (required) Base url of the ledger API.
//   - LedgerTimeout - (optional) Timeout of every ledger request (defaults to 30s).
//   - DefaultFee - (optional) Fee used when sending without one (defaults to 0.0001).
//   - CurrencySymbol - (optional) Symbol of the native currency (defaults to GAUSS).
//   - MinPassphraseLength - (optional) Min length of backup passphrases (defaults to 8).
type AppConfig struct {
	KeystoreType   string
	KeystoreConfig interface{}

	RepoManagerType   string
	RepoManagerConfig interface{}

	LedgerUrl     string
	LedgerTimeout time.Duration

	DefaultFee          string
	CurrencySymbol      string
	MinPassphraseLength int

	ks        ports.Keystore
	rm        ports.RepoManager
	ledger    ports.Ledger
	cypher    domain.ISecretCypher
	walletSvc *application.WalletService
	txSvc     *application.TransactionService
}

// KeystoreArgs are the config args of the badger keystore. Dir holds both
// the db and its salt.
type KeystoreArgs struct {
	Dir      string
	Password []byte
}

func (c *AppConfig) Validate() error {
	if len(c.KeystoreType) == 0 {
		return fmt.Errorf("missing keystore type")
	}
	if _, ok := config.SupportedKeystores[c.KeystoreType]; !ok {
		return fmt.Errorf(
			"keystore type not supported, must be one of: %s",
			config.SupportedKeystores,
		)
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if len(c.LedgerUrl) == 0 {
		return fmt.Errorf("missing ledger url")
	}
	if c.DefaultFee != "" {
		if _, err := wallet.ToBaseUnits(c.DefaultFee); err != nil {
			return fmt.Errorf("invalid default fee: %w", err)
		}
	}
	if c.MinPassphraseLength < 0 {
		return fmt.Errorf("min passphrase length must not be negative")
	}
	if _, err := c.ledgerClient(); err != nil {
		return err
	}
	if _, err := c.keystore(); err != nil {
		return err
	}
	if _, err := c.repoManager(); err != nil {
		c.closeKeystore()
		return err
	}

	return nil
}

func (c *AppConfig) Keystore() ports.Keystore {
	return c.ks
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) Ledger() ports.Ledger {
	return c.ledger
}

func (c *AppConfig) WalletService() *application.WalletService {
	return c.walletService()
}

func (c *AppConfig) TransactionService() *application.TransactionService {
	return c.transactionService()
}

// Close releases the keystore and the repo manager.
func (c *AppConfig) Close() {
	if c.rm != nil {
		c.rm.Close()
		c.rm = nil
	}
	c.closeKeystore()
	c.walletSvc = nil
	c.txSvc = nil
}

func (c *AppConfig) closeKeystore() {
	if c.ks != nil {
		c.ks.Close()
		c.ks = nil
	}
}

func (c *AppConfig) keystore() (ports.Keystore, error) {
	if c.ks != nil {
		return c.ks, nil
	}

	switch c.KeystoreType {
	case "inmemory":
		c.ks = inmemorykeystore.NewKeystore()
		return c.ks, nil
	case "badger":
		if c.KeystoreConfig == nil {
			return nil, fmt.Errorf("missing keystore config args")
		}
		args, ok := c.KeystoreConfig.(KeystoreArgs)
		if !ok {
			return nil, fmt.Errorf("invalid keystore config type, must be KeystoreArgs")
		}
		ks, err := badgerkeystore.NewKeystore(args.Dir, args.Password, log.New())
		if err != nil {
			return nil, err
		}
		c.ks = ks
		return c.ks, nil
	default:
		return nil, fmt.Errorf("unknown keystore type")
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) ledgerClient() (ports.Ledger, error) {
	if c.ledger != nil {
		return c.ledger, nil
	}

	client, err := ledger.NewClient(c.LedgerUrl, c.LedgerTimeout)
	if err != nil {
		return nil, err
	}
	c.ledger = client
	return c.ledger, nil
}

func (c *AppConfig) secretCypher() domain.ISecretCypher {
	if c.cypher == nil {
		c.cypher = scryptaes.NewCypher()
	}
	return c.cypher
}

func (c *AppConfig) walletService() *application.WalletService {
	if c.walletSvc != nil {
		return c.walletSvc
	}

	ks, _ := c.keystore()
	rm, _ := c.repoManager()
	c.walletSvc = application.NewWalletService(
		rm, ks, c.secretCypher(), c.MinPassphraseLength,
	)
	return c.walletSvc
}

func (c *AppConfig) transactionService() *application.TransactionService {
	if c.txSvc != nil {
		return c.txSvc
	}

	ledgerClient, _ := c.ledgerClient()
	c.txSvc = application.NewTransactionService(
		c.walletService(), ledgerClient, c.DefaultFee, c.CurrencySymbol,
	)
	return c.txSvc
}
