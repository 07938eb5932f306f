package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/shopspring/decimal"
)

var colorRed = string("\033[31m")

func printJSON(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "   ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %s", err)
	}
	fmt.Println(string(buf))
	return nil
}

func printErr(err error) {
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(userMessage(err)))
	fmt.Fprintln(os.Stderr, msg)
}

// userMessage maps core errors to messages meant for the user. The generic
// mnemonic error never tells which word is wrong.
func userMessage(err error) string {
	switch {
	case errors.Is(err, wallet.ErrInvalidMnemonic):
		return "invalid mnemonic, check the words and their order"
	case errors.Is(err, domain.ErrWalletNotFound):
		return "no wallet found, create or import one first"
	case errors.Is(err, domain.ErrWalletAlreadyExists):
		return "a wallet already exists, delete it before creating a new one"
	case errors.Is(err, domain.ErrDecryptionFailed):
		return "failed to decrypt backup, wrong passphrase or corrupted file"
	case errors.Is(err, domain.ErrKeystoreFailure):
		return fmt.Sprintf("secure storage failure: %s", err)
	default:
		return err.Error()
	}
}

// formatAmount rounds a display unit amount to the given number of decimals.
func formatAmount(amount string, decimals int) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.StringFixed(int32(decimals))
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
