package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the key to customize the gauss datadir.
	DatadirKey = "DATADIR"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// KeystoreTypeKey is the key to customize the type of keystore holding the
	// wallet secrets.
	KeystoreTypeKey = "KEYSTORE_TYPE"
	// KeystorePasswordKey is the key to set the password unlocking the at-rest
	// encryption of the keystore. Required with the badger keystore.
	KeystorePasswordKey = "KEYSTORE_PASSWORD"
	// DatabaseTypeKey is the key to customize the type of database to use for
	// the wallet metadata.
	DatabaseTypeKey = "DATABASE_TYPE"
	// LedgerUrlKey is the key to customize the base url of the ledger API.
	LedgerUrlKey = "LEDGER_URL"
	// LedgerTimeoutKey is the key to customize the timeout of every request to
	// the ledger API.
	LedgerTimeoutKey = "LEDGER_TIMEOUT_IN_SECONDS"
	// CurrencySymbolKey is the key to customize the symbol shown next to
	// amounts.
	CurrencySymbolKey = "CURRENCY_SYMBOL"
	// DisplayDecimalsKey is the key to customize the number of decimals shown
	// for balances.
	DisplayDecimalsKey = "DISPLAY_DECIMALS"
	// DefaultFeeKey is the key to customize the fee used when sending without
	// an explicit one.
	DefaultFeeKey = "DEFAULT_FEE"
	// MinPassphraseLengthKey is the key to customize the minimum length of
	// backup passphrases.
	MinPassphraseLengthKey = "MIN_PASSPHRASE_LENGTH"
	// DbUserKey is user used to connect to db
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files
	DbMigrationPath = "DB_MIGRATION_PATH"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// KeystoreLocation is the folder inside the datadir containing the
	// encrypted keystore.
	KeystoreLocation = "keystore"

	envPrefix = "GAUSS"
)

var (
	vip *viper.Viper

	defaultDatadir             = btcutil.AppDataDir("gauss", false)
	defaultLogLevel            = 4
	defaultKeystoreType        = "badger"
	defaultDbType              = "badger"
	defaultLedgerUrl           = "https://api.gauss.network"
	defaultLedgerTimeout       = 30
	defaultCurrencySymbol      = "GAUSS"
	defaultDisplayDecimals     = 8
	defaultFee                 = "0.0001"
	defaultMinPassphraseLength = 8

	SupportedKeystores = supportedType{
		"badger":   {},
		"inmemory": {},
	}
	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
		"postgres": {},
	}

	// secretKeys are never printed.
	secretKeys = map[string]struct{}{
		KeystorePasswordKey: {},
		DbPassKey:           {},
	}
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("config: error while loading .env file: %s", err)
	}

	vip = viper.New()
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(KeystoreTypeKey, defaultKeystoreType)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(LedgerUrlKey, defaultLedgerUrl)
	vip.SetDefault(LedgerTimeoutKey, defaultLedgerTimeout)
	vip.SetDefault(CurrencySymbolKey, defaultCurrencySymbol)
	vip.SetDefault(DisplayDecimalsKey, defaultDisplayDecimals)
	vip.SetDefault(DefaultFeeKey, defaultFee)
	vip.SetDefault(MinPassphraseLengthKey, defaultMinPassphraseLength)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "gauss-db-pg")
	vip.SetDefault(DbMigrationPath, "file://internal/infrastructure/storage/db/postgres/migration")

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	level := GetInt(LogLevelKey)
	if level < int(log.PanicLevel) || level > int(log.TraceLevel) {
		return fmt.Errorf(
			"log level must be in range [%d, %d]", log.PanicLevel, log.TraceLevel,
		)
	}

	keystoreType := GetString(KeystoreTypeKey)
	if _, ok := SupportedKeystores[keystoreType]; !ok {
		return fmt.Errorf(
			"unsupported keystore type, must be one of %s", SupportedKeystores,
		)
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	ledgerUrl := GetString(LedgerUrlKey)
	if len(ledgerUrl) <= 0 {
		return fmt.Errorf("ledger url must not be null")
	}
	u, err := url.Parse(ledgerUrl)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("ledger url must be a valid http(s) url")
	}
	if GetInt(LedgerTimeoutKey) <= 0 {
		return fmt.Errorf("ledger timeout must be a positive number of seconds")
	}

	decimals := GetInt(DisplayDecimalsKey)
	if decimals < 0 || decimals > wallet.Decimals {
		return fmt.Errorf("display decimals must be in range [0, %d]", wallet.Decimals)
	}

	if _, err := wallet.ToBaseUnits(GetString(DefaultFeeKey)); err != nil {
		return fmt.Errorf("invalid default fee: %s", err)
	}

	if GetInt(MinPassphraseLengthKey) <= 0 {
		return fmt.Errorf("min passphrase length must be greater than zero")
	}

	return nil
}

func GetDatadir() string {
	return cleanAndExpandPath(GetString(DatadirKey))
}

func GetLogLevel() log.Level {
	return log.Level(GetInt(LogLevelKey))
}

func GetLedgerTimeout() time.Duration {
	return time.Duration(GetInt(LedgerTimeoutKey)) * time.Second
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

// Settings returns the current config as env var name to value, with secret
// values redacted.
func Settings() map[string]string {
	keys := []string{
		DatadirKey, LogLevelKey, KeystoreTypeKey, KeystorePasswordKey,
		DatabaseTypeKey, LedgerUrlKey, LedgerTimeoutKey, CurrencySymbolKey,
		DisplayDecimalsKey, DefaultFeeKey, MinPassphraseLengthKey,
	}
	if GetString(DatabaseTypeKey) == "postgres" {
		keys = append(
			keys, DbUserKey, DbPassKey, DbHostKey, DbPortKey, DbNameKey,
			DbMigrationPath,
		)
	}
	sort.Strings(keys)

	settings := make(map[string]string, len(keys))
	for _, key := range keys {
		val := GetString(key)
		if _, ok := secretKeys[key]; ok && val != "" {
			val = "********"
		}
		settings[fmt.Sprintf("%s_%s", envPrefix, key)] = val
	}
	return settings
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}
	if GetString(KeystoreTypeKey) == "inmemory" {
		return nil
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, KeystoreLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0700)
	}
	return nil
}

func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = strings.Replace(path, "~", homeDir, 1)
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}
