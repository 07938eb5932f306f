package wallet

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places between the display unit of the
// native currency and its base unit.
const Decimals = 18

const (
	// Base unit amounts are uint256 on the ledger.
	maxAmountBits = 256
	// 10^78 is the smallest power of ten above 2^256.
	maxAmountDigits = 78
)

// MaxDataSize bounds the optional data payload of a transaction.
const MaxDataSize = 32 * 1024

// UnsignedTransaction is a value transfer to be signed. Amount and Fee are
// decimal strings in display units and are never converted to floating point.
type UnsignedTransaction struct {
	To     string        `json:"to" validate:"required,eth_addr"`
	Amount string        `json:"amount" validate:"required"`
	Fee    string        `json:"fee" validate:"required"`
	Nonce  uint64        `json:"nonce"`
	Data   hexutil.Bytes `json:"data,omitempty"`
}

// SignedTransaction is an UnsignedTransaction plus the signer address, the
// signature over the canonical encoding, the raw signed encoding and its
// keccak256 hash.
type SignedTransaction struct {
	UnsignedTransaction
	From      string        `json:"from"`
	Signature hexutil.Bytes `json:"signature"`
	Hash      string        `json:"hash"`
	Raw       hexutil.Bytes `json:"raw"`
}

type txPayload struct {
	To     common.Address
	Amount *big.Int
	Fee    *big.Int
	Nonce  uint64
	Data   []byte
}

type signedTxPayload struct {
	To        common.Address
	Amount    *big.Int
	Fee       *big.Int
	Nonce     uint64
	Data      []byte
	Signature []byte
}

// Validate checks the shape of every field without encoding.
func (tx UnsignedTransaction) Validate() error {
	_, err := tx.payload()
	return err
}

// Encode returns the canonical RLP encoding of the list
// [to, amount, fee, nonce, data], with amounts in base units. Semantically
// equal transactions ("1.5" and "1.50", mixed case addresses) encode to the
// same bytes.
func (tx UnsignedTransaction) Encode() ([]byte, error) {
	p, err := tx.payload()
	if err != nil {
		return nil, err
	}
	return encodePayload(p)
}

func (tx UnsignedTransaction) payload() (*txPayload, error) {
	if tx.To == "" {
		return nil, ErrMissingRecipient
	}
	if !IsValidAddress(tx.To) {
		return nil, ErrInvalidAddress
	}
	if strings.TrimSpace(tx.Amount) == "" {
		return nil, ErrMissingAmount
	}
	if strings.TrimSpace(tx.Fee) == "" {
		return nil, ErrMissingFee
	}
	if len(tx.Data) > MaxDataSize {
		return nil, ErrInvalidData
	}
	if err := validate.Struct(tx); err != nil {
		return nil, err
	}

	amount, err := ToBaseUnits(tx.Amount)
	if err != nil {
		return nil, err
	}
	fee, err := ToBaseUnits(tx.Fee)
	if err != nil {
		return nil, err
	}

	return &txPayload{
		To:     common.HexToAddress(tx.To),
		Amount: amount,
		Fee:    fee,
		Nonce:  tx.Nonce,
		Data:   tx.Data,
	}, nil
}

// ToBaseUnits converts a non-negative decimal string in display units into
// an integer amount of base units. Inputs with more than Decimals fractional
// digits are rejected rather than rounded, as are results above 256 bits.
func ToBaseUnits(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrMissingAmount
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if d.IsNegative() {
		return nil, ErrInvalidAmount
	}
	// Bound the exponent before shifting, both Shift and BigInt expand to
	// 10^exp.
	if exp := d.Exponent(); exp < -Decimals || exp > maxAmountDigits {
		return nil, ErrInvalidAmount
	}

	v := d.Shift(Decimals).BigInt()
	if v.BitLen() > maxAmountBits {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// FromBaseUnits formats an amount of base units as a display unit decimal
// string, without trailing zeros.
func FromBaseUnits(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -Decimals).String()
}

// DecodeSignedTransaction parses a raw signed encoding produced by Sign and
// recovers its signer. It fails if the signature does not match the fields.
func DecodeSignedTransaction(raw []byte) (*SignedTransaction, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidEncoding
	}

	var p signedTxPayload
	if err := rlp.DecodeBytes(raw, &p); err != nil {
		return nil, ErrInvalidEncoding
	}
	if len(p.Signature) == 0 {
		return nil, ErrMissingSignature
	}

	tx := UnsignedTransaction{
		To:     p.To.Hex(),
		Amount: FromBaseUnits(p.Amount),
		Fee:    FromBaseUnits(p.Fee),
		Nonce:  p.Nonce,
		Data:   p.Data,
	}
	encoding, err := tx.Encode()
	if err != nil {
		return nil, err
	}
	from, err := recoverAddress(encoding, p.Signature)
	if err != nil {
		return nil, err
	}

	return &SignedTransaction{
		UnsignedTransaction: tx,
		From:                from.Hex(),
		Signature:           p.Signature,
		Hash:                transactionHash(raw),
		Raw:                 common.CopyBytes(raw),
	}, nil
}

func encodePayload(p *txPayload) ([]byte, error) {
	return rlp.EncodeToBytes(p)
}

func encodeSigned(p *txPayload, signature []byte) ([]byte, error) {
	if p == nil {
		return nil, errors.New("missing payload")
	}
	return rlp.EncodeToBytes(&signedTxPayload{
		To:        p.To,
		Amount:    p.Amount,
		Fee:       p.Fee,
		Nonce:     p.Nonce,
		Data:      p.Data,
		Signature: signature,
	})
}
