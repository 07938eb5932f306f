package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/pkg/wallet"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 30 * time.Second

	balancePath     = "/balance"
	historyPath     = "/transactions"
	broadcastPath   = "/broadcast"
	noncePath       = "/nonce"
	requestIDHeader = "X-Request-ID"

	maxResponseSize = 4 << 20
)

var (
	ErrMissingBaseURL = errors.New("missing ledger base url")
	ErrRequestFailed  = errors.New("ledger request failed")
)

// apiResponse is the envelope of every ledger response.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type nonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

type broadcastResponse struct {
	TxHash  string `json:"txHash"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type broadcastRequest struct {
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	Nonce     uint64 `json:"nonce"`
	Data      string `json:"data,omitempty"`
	From      string `json:"from"`
	Signature string `json:"signature"`
	Hash      string `json:"hash"`
	Raw       string `json:"raw"`
}

type client struct {
	baseURL *url.URL
	client  *http.Client
}

// NewClient returns a REST client for the ledger API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) (ports.Ledger, error) {
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid ledger base url scheme %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &client{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *client) GetNonce(ctx context.Context, address string) (uint64, error) {
	var resp nonceResponse
	if err := c.do(
		ctx, http.MethodGet, c.endpoint(noncePath, address, nil), nil, &resp,
	); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

func (c *client) Broadcast(
	ctx context.Context, tx *wallet.SignedTransaction,
) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("missing transaction")
	}

	body, err := json.Marshal(broadcastRequest{
		To:        tx.To,
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Nonce:     tx.Nonce,
		Data:      encodeData(tx.Data),
		From:      tx.From,
		Signature: tx.Signature.String(),
		Hash:      tx.Hash,
		Raw:       tx.Raw.String(),
	})
	if err != nil {
		return "", err
	}

	var resp broadcastResponse
	if err := c.do(
		ctx, http.MethodPost, c.endpoint(broadcastPath, "", nil), body, &resp,
	); err != nil {
		return "", err
	}
	if resp.TxHash == "" {
		msg := resp.Message
		if msg == "" {
			msg = "missing tx hash"
		}
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, msg)
	}
	return resp.TxHash, nil
}

func (c *client) GetBalance(
	ctx context.Context, address string,
) (*ports.Balance, error) {
	var resp ports.Balance
	if err := c.do(
		ctx, http.MethodGet, c.endpoint(balancePath, address, nil), nil, &resp,
	); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *client) GetTransactionHistory(
	ctx context.Context, address string, page, limit int,
) (*ports.TransactionPage, error) {
	query := url.Values{}
	query.Set("page", fmt.Sprint(page))
	query.Set("limit", fmt.Sprint(limit))

	var resp ports.TransactionPage
	if err := c.do(
		ctx, http.MethodGet, c.endpoint(historyPath, address, query), nil, &resp,
	); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *client) endpoint(path, param string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if param != "" {
		u.Path += "/" + url.PathEscape(param)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *client) do(
	ctx context.Context, method, endpoint string, body []byte, out interface{},
) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	logger := log.WithFields(log.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       req.URL.Path,
	})
	logger.Debug("ledger: request")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.WithError(err).Debug("ledger: request error")
		return fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	logger.WithField("status", resp.StatusCode).Debug("ledger: response")

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(buf, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
		}
		return fmt.Errorf("%w: invalid response: %s", ErrRequestFailed, err)
	}

	if !envelope.Success || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		msg := envelope.Error
		if msg == "" {
			msg = envelope.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrRequestFailed, msg)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: invalid response data: %s", ErrRequestFailed, err)
	}
	return nil
}

func encodeData(data []byte) string {
	if len(data) <= 0 {
		return ""
	}
	return fmt.Sprintf("0x%x", data)
}
