// Package tokens holds the static token registry for a session: the base
// settlement asset and the allow-list of symbols the bot may buy.
package tokens

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"arbitrum-trade-bot-go/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownSymbol   = errors.New("unknown token symbol")
	ErrDuplicateSymbol = errors.New("duplicate token symbol")
)

// Token is a single registry entry.
type Token struct {
	Symbol        string
	Address       common.Address
	Decimals      int32
	FeedID        string          // price-feed identifier, empty when the token cannot be priced
	FallbackPrice decimal.Decimal // USD price used when the feed is unavailable
}

// Priced reports whether the token has a price-feed identifier.
func (t Token) Priced() bool {
	return t.FeedID != ""
}

// Registry is read-only after construction.
type Registry struct {
	base      Token
	tradeable []string
	bySymbol  map[string]Token
}

// New builds a registry. The base asset is never part of the tradeable set.
func New(base Token, tradeable []Token) (*Registry, error) {
	r := &Registry{
		base:     base,
		bySymbol: map[string]Token{base.Symbol: base},
	}
	for _, t := range tradeable {
		if t.Symbol == "" {
			return nil, fmt.Errorf("token at %s has no symbol", t.Address.Hex())
		}
		if _, ok := r.bySymbol[t.Symbol]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, t.Symbol)
		}
		if t.Priced() && !t.FallbackPrice.IsPositive() {
			return nil, fmt.Errorf("token %s has a feed but no positive fallback price", t.Symbol)
		}
		r.bySymbol[t.Symbol] = t
		r.tradeable = append(r.tradeable, t.Symbol)
	}
	sort.Strings(r.tradeable)
	return r, nil
}

// Default returns the Arbitrum One registry: USDT as the base asset and
// ARB, MAGIC and GMX as tradeable tokens.
func Default() *Registry {
	r, err := New(
		Token{
			Symbol:        "USDT",
			Address:       common.HexToAddress("0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9"),
			Decimals:      6,
			FeedID:        "tether",
			FallbackPrice: decimal.NewFromInt(1),
		},
		[]Token{
			{
				Symbol:        "ARB",
				Address:       common.HexToAddress("0x912ce59144191c1204e64559fe8253a0e49e6548"),
				Decimals:      18,
				FeedID:        "arbitrum",
				FallbackPrice: decimal.RequireFromString("0.80"),
			},
			{
				Symbol:        "MAGIC",
				Address:       common.HexToAddress("0x539bde0d7dbd336b79148aa742883198bbf60342"),
				Decimals:      18,
				FeedID:        "magic",
				FallbackPrice: decimal.RequireFromString("0.45"),
			},
			{
				Symbol:        "GMX",
				Address:       common.HexToAddress("0xfc5a1a6eb076a2c7ad06ed22c90d7e710e35ad0a"),
				Decimals:      18,
				FeedID:        "gmx",
				FallbackPrice: decimal.RequireFromString("25"),
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// FromConfig builds the registry from configuration, falling back to Default
// when no tradeable tokens are configured.
func FromConfig(cfg config.Tokens) (*Registry, error) {
	if len(cfg.Tradeable) == 0 {
		return Default(), nil
	}
	base := Default().Base()
	if cfg.Base.Symbol != "" {
		b, err := tokenFromConfig(cfg.Base)
		if err != nil {
			return nil, err
		}
		base = b
	}
	tradeable := make([]Token, 0, len(cfg.Tradeable))
	for _, tc := range cfg.Tradeable {
		t, err := tokenFromConfig(tc)
		if err != nil {
			return nil, err
		}
		tradeable = append(tradeable, t)
	}
	return New(base, tradeable)
}

func tokenFromConfig(tc config.Token) (Token, error) {
	if !common.IsHexAddress(tc.Address) {
		return Token{}, fmt.Errorf("token %s: invalid address %q", tc.Symbol, tc.Address)
	}
	if tc.Decimals < 0 || tc.Decimals > 36 {
		return Token{}, fmt.Errorf("token %s: decimals out of range: %d", tc.Symbol, tc.Decimals)
	}
	return Token{
		Symbol:        strings.ToUpper(strings.TrimSpace(tc.Symbol)),
		Address:       common.HexToAddress(tc.Address),
		Decimals:      tc.Decimals,
		FeedID:        strings.TrimSpace(tc.FeedID),
		FallbackPrice: tc.FallbackPrice,
	}, nil
}

// Base returns the settlement asset.
func (r *Registry) Base() Token {
	return r.base
}

// Tradeable returns the symbols that may be bought, sorted. The slice is a copy.
func (r *Registry) Tradeable() []string {
	out := make([]string, len(r.tradeable))
	copy(out, r.tradeable)
	return out
}

// Lookup finds a token by symbol, including the base asset.
func (r *Registry) Lookup(symbol string) (Token, error) {
	t, ok := r.bySymbol[symbol]
	if !ok {
		return Token{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return t, nil
}
