package main

import (
	"github.com/gauss-network/gauss-wallet/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print CLI configuration",
	Long: "this command prints the configuration of the gauss CLI. Every " +
		"entry can be customized with the env var of the same name, or in a " +
		".env file in the working directory",
	RunE: configPrint,
}

func configPrint(_ *cobra.Command, _ []string) error {
	return printJSON(config.Settings())
}
