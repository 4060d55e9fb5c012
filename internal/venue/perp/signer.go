// Package perp implements the EIP-712 signer and order-tuple construction
// for the directional, leveraged perpetual-futures venue.
//
// Grounded on the teacher's internal/exchange/auth.go SignTypedData (V
// normalization to {27,28}, apitypes.TypedDataAndHash for the Keccak-256
// domain-separator-plus-struct-hash digest) and on
// original_source/exchange-hyperliquid's wallet.rs/signing.rs (EOA private
// key, 0x-prefix stripping, nonce-bearing order signature) for the overall
// shape of a directional-venue signer.
package perp

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	pkgdecimal "polymarket-mm/pkg/decimal"
	"polymarket-mm/pkg/secret"
	"polymarket-mm/pkg/types"
)

// Domain is the EIP-712 domain separator for the venue's order contract.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// OrderTuple is the literal EIP-712 struct the venue signs over.
type OrderTuple struct {
	Maker       common.Address
	TokenID     string
	Side        int // 0 = buy, 1 = sell
	MakerAmount *big.Int
	TakerAmount *big.Int
	Expiration  int64
	Nonce       int64
	FeeRateBps  int64
}

// Signer holds an EOA private key behind a zeroized secret and produces
// EIP-712 signatures over order tuples.
type Signer struct {
	key     *secret.Bytes // 32-byte secp256k1 scalar
	address common.Address
	domain  Domain
}

// NewSigner parses a hex-encoded private key (with or without 0x prefix)
// and derives the signer's address. The raw key bytes are copied into a
// zeroized secret; the caller's copy is the caller's responsibility.
func NewSigner(privateKeyHex string, domain Domain) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")

	ecdsaKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("perp: parse private key: %w", err)
	}

	return &Signer{
		key:     secret.New(crypto.FromECDSA(ecdsaKey)),
		address: crypto.PubkeyToAddress(ecdsaKey.PublicKey),
		domain:  domain,
	}, nil
}

// Address returns the signer's Ethereum address.
func (s *Signer) Address() common.Address { return s.address }

// Destroy zeroizes the underlying key material.
func (s *Signer) Destroy() { s.key.Destroy() }

// BuildOrderTuple converts a human price/size order request into the
// maker/taker amount pair the venue signs over, applying the mandated
// floor(p*s*100)/100 rounding rule so that neither side of the rounding
// favors the signer.
func BuildOrderTuple(maker common.Address, tokenID string, req types.OrderRequest, expiration, nonce int64, feeRateBps int64) OrderTuple {
	quoteAmount := pkgdecimal.FloorMul2dp(req.Price, req.Size)
	shareAmount := req.Size.Truncate(2)

	sideInt := 0
	var makerAmount, takerAmount *big.Int
	switch req.Side {
	case types.Buy:
		sideInt = 0
		makerAmount = toBaseUnits(quoteAmount)
		takerAmount = toBaseUnits(shareAmount)
	case types.Sell:
		sideInt = 1
		makerAmount = toBaseUnits(shareAmount)
		takerAmount = toBaseUnits(quoteAmount)
	}

	return OrderTuple{
		Maker:       maker,
		TokenID:     tokenID,
		Side:        sideInt,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Expiration:  expiration,
		Nonce:       nonce,
		FeeRateBps:  feeRateBps,
	}
}

// toBaseUnits scales a two-decimal quote-currency value to integer base
// units (6 decimals, matching the venue's on-chain token precision).
func toBaseUnits(v decimal.Decimal) *big.Int {
	scaled := v.Shift(6)
	return scaled.BigInt()
}

// SignOrder produces an EIP-712 signature over an order tuple, returning
// the 65-byte [R || S || V] signature with V normalized to {27, 28}.
func (s *Signer) SignOrder(order OrderTuple) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "maker", Type: "address"},
				{Name: "tokenId", Type: "string"},
				{Name: "side", Type: "uint8"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              s.domain.Name,
			Version:           s.domain.Version,
			ChainId:           (*ethmath.HexOrDecimal256)(big.NewInt(s.domain.ChainID)),
			VerifyingContract: s.domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"maker":       order.Maker.Hex(),
			"tokenId":     order.TokenID,
			"side":        strconv.Itoa(order.Side),
			"makerAmount": order.MakerAmount.String(),
			"takerAmount": order.TakerAmount.String(),
			"expiration":  strconv.FormatInt(order.Expiration, 10),
			"nonce":       strconv.FormatInt(order.Nonce, 10),
			"feeRateBps":  strconv.FormatInt(order.FeeRateBps, 10),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("perp: typed data hash: %w", err)
	}

	ecdsaKey, err := crypto.ToECDSA(s.key.Expose())
	if err != nil {
		return nil, fmt.Errorf("perp: rehydrate key: %w", err)
	}

	sig, err := crypto.Sign(hash, ecdsaKey)
	if err != nil {
		return nil, fmt.Errorf("perp: sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// RecoverAddress recovers the signer address from a signature and order,
// used by the sign/recover round-trip test.
func RecoverAddress(domain Domain, order OrderTuple, sig []byte) (common.Address, error) {
	sigCopy := make([]byte, len(sig))
	copy(sigCopy, sig)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "maker", Type: "address"},
				{Name: "tokenId", Type: "string"},
				{Name: "side", Type: "uint8"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*ethmath.HexOrDecimal256)(big.NewInt(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"maker":       order.Maker.Hex(),
			"tokenId":     order.TokenID,
			"side":        strconv.Itoa(order.Side),
			"makerAmount": order.MakerAmount.String(),
			"takerAmount": order.TakerAmount.String(),
			"expiration":  strconv.FormatInt(order.Expiration, 10),
			"nonce":       strconv.FormatInt(order.Nonce, 10),
			"feeRateBps":  strconv.FormatInt(order.FeeRateBps, 10),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Address{}, fmt.Errorf("perp: typed data hash: %w", err)
	}

	pub, err := crypto.SigToPub(hash, sigCopy)
	if err != nil {
		return common.Address{}, fmt.Errorf("perp: recover: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// NonceFromTime derives a monotonic nonce from wall-clock time, matching
// the teacher's timestamp-as-nonce convention.
func NonceFromTime(t time.Time) int64 { return t.UnixNano() }
