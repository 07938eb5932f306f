package wallet

import (
	"crypto/ecdsa"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/tyler-smith/go-bip39"
)

var validate = validator.New()

// KeyMaterial holds the secp256k1 key pair of the wallet. The private key
// never leaves this package except through PrivateKeyBytes, which exists only
// to persist it into a keystore.
type KeyMaterial struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	mnemonic   Mnemonic
}

// NewKeyMaterialFromMnemonic derives the key pair at DefaultDerivationPath
// from the BIP-39 seed of the given mnemonic, with an empty seed passphrase.
func NewKeyMaterialFromMnemonic(mnemonic Mnemonic) (*KeyMaterial, error) {
	if len(mnemonic) == 0 {
		return nil, ErrMissingMnemonic
	}
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic.String(), "")
	defer clear(seed)

	hdNode, err := deriveChildKey(seed, defaultPath)
	if err != nil {
		return nil, err
	}
	defer hdNode.Zero()

	privateKey, err := hdNode.ECPrivKey()
	if err != nil {
		return nil, err
	}
	defer zeroBtcecKey(privateKey)

	raw := privateKey.Serialize()
	defer clear(raw)

	km, err := newKeyMaterial(raw)
	if err != nil {
		return nil, err
	}
	km.mnemonic = append(Mnemonic(nil), mnemonic...)
	return km, nil
}

// NewKeyMaterialFromPrivateKey validates the given 32-byte scalar against the
// secp256k1 order and derives its address. The input slice is not retained.
func NewKeyMaterialFromPrivateKey(raw []byte) (*KeyMaterial, error) {
	if len(raw) == 0 {
		return nil, ErrMissingPrivateKey
	}
	return newKeyMaterial(raw)
}

// NewKeyMaterialFromHex is like NewKeyMaterialFromPrivateKey for a hex
// encoded key, with or without 0x prefix.
func NewKeyMaterialFromHex(hexKey string) (*KeyMaterial, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, ErrMissingPrivateKey
	}
	if !strings.HasPrefix(hexKey, "0x") && !strings.HasPrefix(hexKey, "0X") {
		hexKey = "0x" + hexKey
	}
	raw, err := hexutil.Decode(hexKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	defer clear(raw)

	return newKeyMaterial(raw)
}

// Address returns the EIP-55 checksummed hex address.
func (k *KeyMaterial) Address() string {
	return k.address.Hex()
}

// Mnemonic returns the phrase the key was derived from, if any.
func (k *KeyMaterial) Mnemonic() Mnemonic {
	return k.mnemonic
}

// HasMnemonic returns whether the key was derived from a mnemonic.
func (k *KeyMaterial) HasMnemonic() bool {
	return len(k.mnemonic) > 0
}

// PrivateKeyBytes returns a fresh copy of the 32-byte private key. The caller
// owns the slice and must clear it once persisted.
func (k *KeyMaterial) PrivateKeyBytes() []byte {
	if k.privateKey == nil {
		return nil
	}
	return crypto.FromECDSA(k.privateKey)
}

// Zero wipes the private scalar and the mnemonic. The KeyMaterial is unusable
// afterwards.
func (k *KeyMaterial) Zero() {
	if k == nil {
		return
	}
	if k.privateKey != nil && k.privateKey.D != nil {
		words := k.privateKey.D.Bits()
		for i := range words {
			words[i] = 0
		}
		k.privateKey.D.SetInt64(0)
	}
	k.privateKey = nil
	k.mnemonic.Zero()
	k.mnemonic = nil
}

// IsValidAddress returns whether addr is a 0x prefixed, 20-byte hex string.
// Case is not significant.
func IsValidAddress(addr string) bool {
	return validate.Var(addr, "required,eth_addr") == nil
}

func newKeyMaterial(raw []byte) (*KeyMaterial, error) {
	privateKey, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return &KeyMaterial{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

func deriveChildKey(
	seed []byte, path DerivationPath,
) (*hdkeychain.ExtendedKey, error) {
	hdNode, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	for _, step := range path {
		child, err := hdNode.Derive(step)
		hdNode.Zero()
		if err != nil {
			return nil, err
		}
		hdNode = child
	}
	return hdNode, nil
}

func zeroBtcecKey(key *btcec.PrivateKey) {
	if key != nil {
		key.Zero()
	}
}
