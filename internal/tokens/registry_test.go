package tokens

import (
	"testing"

	"arbitrum-trade-bot-go/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default()

	assert.Equal(t, "USDT", r.Base().Symbol)
	assert.Equal(t, int32(6), r.Base().Decimals)
	assert.Equal(t, []string{"ARB", "GMX", "MAGIC"}, r.Tradeable())
	assert.NotContains(t, r.Tradeable(), "USDT")

	arb, err := r.Lookup("ARB")
	require.NoError(t, err)
	assert.Equal(t, "arbitrum", arb.FeedID)
	assert.Equal(t, "0x912CE59144191C1204E64559FE8253a0e49E6548", arb.Address.Hex())

	_, err = r.Lookup("DOGE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestTradeableIsCopy(t *testing.T) {
	r := Default()
	syms := r.Tradeable()
	syms[0] = "XXX"
	assert.Equal(t, "ARB", r.Tradeable()[0])
}

func TestNew(t *testing.T) {
	base := Default().Base()

	t.Run("Duplicate", func(t *testing.T) {
		_, err := New(base, []Token{{Symbol: "ARB"}, {Symbol: "ARB"}})
		assert.ErrorIs(t, err, ErrDuplicateSymbol)
	})

	t.Run("BaseIsNotTradeable", func(t *testing.T) {
		_, err := New(base, []Token{{Symbol: "USDT"}})
		assert.ErrorIs(t, err, ErrDuplicateSymbol)
	})

	t.Run("FeedWithoutFallback", func(t *testing.T) {
		_, err := New(base, []Token{{Symbol: "ARB", FeedID: "arbitrum"}})
		assert.Error(t, err)
	})

	t.Run("UnpricedTokenAllowed", func(t *testing.T) {
		r, err := New(base, []Token{{Symbol: "NEW"}})
		require.NoError(t, err)
		tok, err := r.Lookup("NEW")
		require.NoError(t, err)
		assert.False(t, tok.Priced())
	})
}

func TestFromConfig(t *testing.T) {
	t.Run("EmptyUsesDefault", func(t *testing.T) {
		r, err := FromConfig(config.Tokens{})
		require.NoError(t, err)
		assert.Len(t, r.Tradeable(), 3)
	})

	t.Run("Custom", func(t *testing.T) {
		r, err := FromConfig(config.Tokens{Tradeable: []config.Token{{
			Symbol:        "pendle",
			Address:       "0x0c880f6761f1af8d9aa9c466984b80dab9a8c9e8",
			Decimals:      18,
			FeedID:        "pendle",
			FallbackPrice: decimal.NewFromInt(4),
		}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"PENDLE"}, r.Tradeable())
		assert.Equal(t, "USDT", r.Base().Symbol)
	})

	t.Run("BadAddress", func(t *testing.T) {
		_, err := FromConfig(config.Tokens{Tradeable: []config.Token{{Symbol: "X", Address: "nope"}}})
		assert.Error(t, err)
	})
}
