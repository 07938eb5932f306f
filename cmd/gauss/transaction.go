package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gauss-network/gauss-wallet/internal/core/application"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/spf13/cobra"
)

var (
	recipient string
	amount    string
	fee       string
	data      string
	message   string
	signature string
	signer    string
	rawTx     string
	page      int
	limit     int

	txSendCmd = &cobra.Command{
		Use:   "send",
		Short: "send funds",
		Long: "this command lets you sign a transfer with the wallet key and " +
			"broadcast it to the ledger",
		RunE: txSend,
	}
	txSignMessageCmd = &cobra.Command{
		Use:   "sign-message",
		Short: "sign a message",
		Long: "this command lets you sign an arbitrary message with the " +
			"wallet key, to prove ownership of the address",
		RunE: txSignMessage,
	}
	txVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "verify a signature",
		Long: "this command lets you verify either a message signature, " +
			"given message, signature and address, or a raw signed transaction",
		RunE: txVerify,
	}
	txCmd = &cobra.Command{
		Use:   "tx",
		Short: "send funds and verify signatures",
		Long: "this command lets you send funds from the wallet and verify " +
			"signed messages and transactions",
	}
	balanceCmd = &cobra.Command{
		Use:   "balance",
		Short: "get wallet balance",
		Long: "this command returns the balance of the wallet. If the ledger " +
			"can't be reached, the last known balance is shown",
		RunE: balance,
	}
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "get wallet transaction history",
		Long:  "this command returns a page of the transactions of the wallet",
		RunE:  history,
	}
)

func init() {
	txSendCmd.Flags().StringVar(&recipient, "to", "", "recipient address")
	txSendCmd.Flags().StringVar(&amount, "amount", "", "amount to send")
	txSendCmd.Flags().StringVar(
		&fee, "fee", "", fmt.Sprintf("transaction fee (default %s)", defaultFee),
	)
	txSendCmd.Flags().StringVar(&data, "data", "", "optional hex encoded payload")
	txSendCmd.MarkFlagRequired("to")
	txSendCmd.MarkFlagRequired("amount")

	txSignMessageCmd.Flags().StringVar(&message, "message", "", "message to sign")
	txSignMessageCmd.MarkFlagRequired("message")

	txVerifyCmd.Flags().StringVar(&message, "message", "", "signed message")
	txVerifyCmd.Flags().StringVar(&signature, "signature", "", "hex encoded signature")
	txVerifyCmd.Flags().StringVar(&signer, "address", "", "address of the signer")
	txVerifyCmd.Flags().StringVar(&rawTx, "raw", "", "hex encoded raw signed transaction")
	txVerifyCmd.MarkFlagsRequiredTogether("message", "signature", "address")
	txVerifyCmd.MarkFlagsMutuallyExclusive("raw", "message")
	txVerifyCmd.MarkFlagsOneRequired("raw", "message")

	historyCmd.Flags().IntVar(&page, "page", application.DefaultHistoryPage, "page number")
	historyCmd.Flags().IntVar(&limit, "limit", application.DefaultHistoryLimit, "page size")

	txCmd.AddCommand(txSendCmd, txSignMessageCmd, txVerifyCmd)
}

func txSend(cmd *cobra.Command, _ []string) error {
	var payload []byte
	if data != "" {
		buf, err := hexutil.Decode(data)
		if err != nil {
			return fmt.Errorf("invalid data, must be 0x prefixed hex: %w", err)
		}
		payload = buf
	}

	txSvc := appCfg.TransactionService()
	res, err := txSvc.SendTransaction(cmd.Context(), application.SendTransactionArgs{
		To:     recipient,
		Amount: amount,
		Fee:    fee,
		Data:   payload,
	})
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"txid":   res.TxHash,
		"hash":   res.Tx.Hash,
		"from":   res.Tx.From,
		"to":     res.Tx.To,
		"amount": fmt.Sprintf("%s %s", res.Tx.Amount, currencySymbol),
		"fee":    fmt.Sprintf("%s %s", res.Tx.Fee, currencySymbol),
		"nonce":  res.Tx.Nonce,
	})
}

func txSignMessage(cmd *cobra.Command, _ []string) error {
	walletSvc := appCfg.WalletService()

	sig, err := walletSvc.SignMessage(cmd.Context(), []byte(message))
	if err != nil {
		return err
	}
	info, err := walletSvc.GetInfo(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"address":   info.Address,
		"signature": hexutil.Encode(sig),
	})
}

func txVerify(_ *cobra.Command, _ []string) error {
	if rawTx != "" {
		raw, err := hexutil.Decode(rawTx)
		if err != nil {
			return fmt.Errorf("invalid raw transaction, must be 0x prefixed hex: %w", err)
		}
		tx, err := wallet.DecodeSignedTransaction(raw)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"valid":  wallet.VerifyTransaction(tx),
			"hash":   tx.Hash,
			"from":   tx.From,
			"to":     tx.To,
			"amount": tx.Amount,
			"fee":    tx.Fee,
			"nonce":  tx.Nonce,
		})
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("invalid signature, must be 0x prefixed hex: %w", err)
	}
	return printJSON(map[string]bool{
		"valid": wallet.Verify([]byte(message), sig, signer),
	})
}

func balance(cmd *cobra.Command, _ []string) error {
	txSvc := appCfg.TransactionService()

	info, err := txSvc.GetBalance(cmd.Context())
	if err != nil {
		return err
	}

	res := map[string]interface{}{
		"address": info.Address,
		"balance": fmt.Sprintf(
			"%s %s", formatAmount(info.Balance, displayDecimals), info.Currency,
		),
	}
	if info.UpdatedAt > 0 {
		res["updated_at"] = time.Unix(info.UpdatedAt, 0).Format(time.RFC3339)
	}
	if info.Stale {
		res["stale"] = true
	}
	return printJSON(res)
}

func history(cmd *cobra.Command, _ []string) error {
	txSvc := appCfg.TransactionService()

	h, err := txSvc.GetTransactionHistory(cmd.Context(), page, limit)
	if err != nil {
		return err
	}
	return printJSON(h)
}
