package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	appconfig "github.com/gauss-network/gauss-wallet/internal/app-config"
	"github.com/gauss-network/gauss-wallet/internal/config"
	postgresdb "github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/postgres"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Build info.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Config from env vars.
	logLevel         = config.GetLogLevel()
	datadir          = config.GetDatadir()
	keystoreType     = config.GetString(config.KeystoreTypeKey)
	keystorePassword = config.GetString(config.KeystorePasswordKey)
	dbType           = config.GetString(config.DatabaseTypeKey)
	dbDir            = filepath.Join(datadir, config.DbLocation)
	keystoreDir      = filepath.Join(datadir, config.KeystoreLocation)
	ledgerUrl        = config.GetString(config.LedgerUrlKey)
	ledgerTimeout    = config.GetLedgerTimeout()
	currencySymbol   = config.GetString(config.CurrencySymbolKey)
	displayDecimals  = config.GetInt(config.DisplayDecimalsKey)
	defaultFee       = config.GetString(config.DefaultFeeKey)
	minPassphraseLen = config.GetInt(config.MinPassphraseLengthKey)

	appCfg *appconfig.AppConfig

	rootCmd = &cobra.Command{
		Use:   "gauss",
		Short: "CLI for gauss self-custodial wallet",
		Long: "This CLI lets you create or import a gauss wallet, sign and " +
			"broadcast transactions and check your balance, without your " +
			"secrets ever leaving this device",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log.SetLevel(logLevel)
			if !needsApp(cmd) {
				return nil
			}
			cfg, err := newAppConfig()
			if err != nil {
				return err
			}
			appCfg = cfg
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if appCfg != nil {
				appCfg.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       formatVersion(),
	}
)

func init() {
	rootCmd.AddCommand(configCmd, walletCmd, txCmd, balanceCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printErr(err)
		if appCfg != nil {
			appCfg.Close()
		}
		os.Exit(1)
	}
}

func newAppConfig() (*appconfig.AppConfig, error) {
	var repoManagerConfig interface{} = dbDir
	if dbType == "postgres" {
		repoManagerConfig = postgresdb.DbConfig{
			DbUser:             config.GetString(config.DbUserKey),
			DbPassword:         config.GetString(config.DbPassKey),
			DbHost:             config.GetString(config.DbHostKey),
			DbPort:             config.GetInt(config.DbPortKey),
			DbName:             config.GetString(config.DbNameKey),
			MigrationSourceURL: config.GetString(config.DbMigrationPath),
		}
	}

	cfg := &appconfig.AppConfig{
		KeystoreType: keystoreType,
		KeystoreConfig: appconfig.KeystoreArgs{
			Dir:      keystoreDir,
			Password: []byte(keystorePassword),
		},
		RepoManagerType:     dbType,
		RepoManagerConfig:   repoManagerConfig,
		LedgerUrl:           ledgerUrl,
		LedgerTimeout:       ledgerTimeout,
		DefaultFee:          defaultFee,
		CurrencySymbol:      currencySymbol,
		MinPassphraseLength: minPassphraseLen,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// needsApp returns whether cmd, or any of its parents, requires the wallet
// services.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return false
		}
	}
	return cmd.Runnable()
}
