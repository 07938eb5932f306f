package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/spf13/cobra"
)

var (
	walletName   string
	mnemonic     string
	privateKey   string
	passphrase   string
	backupFile   string
	forceDelete  bool
	showMnemonic bool

	walletCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "create a brand new wallet",
		Long: "this command lets you create a new wallet from a randomly " +
			"generated 12-words mnemonic. Write the mnemonic down, it's the " +
			"only way to recover your funds",
		RunE: walletCreate,
	}
	walletImportCmd = &cobra.Command{
		Use:   "import",
		Short: "import a wallet from mnemonic",
		Long: "this command lets you restore a wallet from its 12-words " +
			"mnemonic",
		RunE: walletImport,
	}
	walletImportKeyCmd = &cobra.Command{
		Use:   "import-key",
		Short: "import a wallet from private key",
		Long: "this command lets you restore a wallet from its hex encoded " +
			"private key. Such a wallet has no mnemonic to reveal",
		RunE: walletImportKey,
	}
	walletRevealCmd = &cobra.Command{
		Use:   "reveal",
		Short: "show the wallet mnemonic",
		Long: "this command prints the mnemonic of the wallet. Make sure " +
			"nobody is looking at your screen",
		RunE: walletReveal,
	}
	walletDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "delete the wallet",
		Long: "this command erases the wallet and all its secrets from this " +
			"device. Funds are lost unless you have a backup of the mnemonic",
		RunE: walletDelete,
	}
	walletStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "get wallet status",
		Long: "this command returns whether a wallet is active and info " +
			"about it, like its address and name",
		RunE: walletStatus,
	}
	walletExportCmd = &cobra.Command{
		Use:   "export",
		Short: "export an encrypted backup",
		Long: "this command lets you export the wallet secret encrypted with " +
			"the given passphrase",
		RunE: walletExport,
	}
	walletRestoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "restore a wallet from an encrypted backup",
		Long: "this command lets you restore a wallet from a backup created " +
			"with the export command",
		RunE: walletRestore,
	}
	walletCmd = &cobra.Command{
		Use:   "wallet",
		Short: "manage the wallet",
		Long: "this command lets you create, import, back up or delete the " +
			"wallet, as long as retrieving info about its status",
	}
)

func init() {
	walletCreateCmd.Flags().StringVar(&walletName, "name", "", "display name of the wallet")
	walletCreateCmd.Flags().BoolVar(
		&showMnemonic, "show-mnemonic", false,
		"print the mnemonic of the new wallet",
	)

	walletImportCmd.Flags().StringVar(
		&mnemonic, "mnemonic", "", "space separated word list as wallet seed",
	)
	walletImportCmd.Flags().StringVar(&walletName, "name", "", "display name of the wallet")
	walletImportCmd.MarkFlagRequired("mnemonic")

	walletImportKeyCmd.Flags().StringVar(
		&privateKey, "key", "", "hex encoded private key, with or without 0x prefix",
	)
	walletImportKeyCmd.Flags().StringVar(&walletName, "name", "", "display name of the wallet")
	walletImportKeyCmd.MarkFlagRequired("key")

	walletDeleteCmd.Flags().BoolVar(
		&forceDelete, "force", false, "confirm the deletion of the wallet",
	)

	walletExportCmd.Flags().StringVar(&passphrase, "passphrase", "", "backup passphrase")
	walletExportCmd.Flags().StringVar(
		&backupFile, "out", "", "file to write the backup to (default stdout)",
	)
	walletExportCmd.MarkFlagRequired("passphrase")

	walletRestoreCmd.Flags().StringVar(&passphrase, "passphrase", "", "backup passphrase")
	walletRestoreCmd.Flags().StringVar(
		&backupFile, "in", "", "file to read the backup from (default stdin)",
	)
	walletRestoreCmd.Flags().StringVar(&walletName, "name", "", "display name of the wallet")
	walletRestoreCmd.MarkFlagRequired("passphrase")

	walletCmd.AddCommand(
		walletCreateCmd, walletImportCmd, walletImportKeyCmd, walletRevealCmd,
		walletDeleteCmd, walletStatusCmd, walletExportCmd, walletRestoreCmd,
	)
}

func walletCreate(cmd *cobra.Command, _ []string) error {
	walletSvc := appCfg.WalletService()

	address, err := walletSvc.CreateWallet(cmd.Context(), walletName)
	if err != nil {
		return err
	}

	if err := printJSON(map[string]string{"address": address}); err != nil {
		return err
	}
	if !showMnemonic {
		fmt.Println("")
		fmt.Println("wallet created, run 'gauss wallet reveal' to back up your mnemonic")
		return nil
	}
	return printMnemonic(cmd)
}

func walletImport(cmd *cobra.Command, _ []string) error {
	walletSvc := appCfg.WalletService()

	address, err := walletSvc.ImportWallet(cmd.Context(), mnemonic, walletName)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"address": address})
}

func walletImportKey(cmd *cobra.Command, _ []string) error {
	walletSvc := appCfg.WalletService()

	address, err := walletSvc.ImportPrivateKey(cmd.Context(), privateKey, walletName)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"address": address})
}

func walletReveal(cmd *cobra.Command, _ []string) error {
	return printMnemonic(cmd)
}

func printMnemonic(cmd *cobra.Command) error {
	walletSvc := appCfg.WalletService()

	words, err := walletSvc.RevealMnemonic(cmd.Context())
	if err != nil {
		return err
	}
	defer words.Zero()

	for i, w := range words {
		fmt.Printf("%2d. %s\n", i+1, w)
	}
	return nil
}

func walletDelete(cmd *cobra.Command, _ []string) error {
	if !forceDelete {
		return fmt.Errorf(
			"this erases every secret of the wallet, rerun with --force to confirm",
		)
	}

	walletSvc := appCfg.WalletService()
	if err := walletSvc.DeleteWallet(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("wallet deleted")
	return nil
}

func walletStatus(cmd *cobra.Command, _ []string) error {
	walletSvc := appCfg.WalletService()

	status, err := walletSvc.GetStatus(cmd.Context())
	if err != nil {
		return err
	}
	if !status.IsActive() {
		return printJSON(map[string]string{"status": status.Status.String()})
	}

	info, err := walletSvc.GetInfo(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"status":     status.Status.String(),
		"address":    info.Address,
		"name":       info.Name,
		"created_at": time.Unix(info.CreatedAt, 0).Format(time.RFC3339),
	})
}

func walletExport(cmd *cobra.Command, _ []string) error {
	walletSvc := appCfg.WalletService()

	pass := []byte(passphrase)
	defer clear(pass)

	blob, err := walletSvc.ExportBackup(cmd.Context(), pass)
	if err != nil {
		return err
	}
	buf, err := blob.Serialize()
	if err != nil {
		return err
	}

	if backupFile == "" {
		fmt.Println(string(buf))
		return nil
	}
	if err := os.WriteFile(backupFile, buf, 0600); err != nil {
		return fmt.Errorf("writing backup file: %w", err)
	}
	fmt.Printf("backup written to %s\n", backupFile)
	return nil
}

func walletRestore(cmd *cobra.Command, _ []string) error {
	var (
		buf []byte
		err error
	)
	if backupFile == "" {
		buf, err = io.ReadAll(os.Stdin)
	} else {
		buf, err = os.ReadFile(backupFile)
	}
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}

	blob, err := domain.ParseEncryptedBlob([]byte(strings.TrimSpace(string(buf))))
	if err != nil {
		return err
	}

	pass := []byte(passphrase)
	defer clear(pass)

	walletSvc := appCfg.WalletService()
	address, err := walletSvc.RestoreBackup(cmd.Context(), blob, pass, walletName)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"address": address})
}
