package chain

import (
	"context"
	"fmt"
	"time"

	"arbitrum-trade-bot-go/internal/tokens"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// PaperExecutor simulates swaps for dry runs. It performs no network I/O.
type PaperExecutor struct {
	registry       *tokens.Registry
	maxSlippageBps int64
	logger         *zap.Logger
}

var _ Executor = (*PaperExecutor)(nil)

// NewPaperExecutor creates a PaperExecutor.
func NewPaperExecutor(registry *tokens.Registry, maxSlippageBps int64, logger *zap.Logger) *PaperExecutor {
	return &PaperExecutor{registry: registry, maxSlippageBps: maxSlippageBps, logger: logger.Named("paper-executor")}
}

// Swap validates the request like the real executor and returns a synthetic receipt.
func (p *PaperExecutor) Swap(ctx context.Context, req SwapRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSwapFailed, err)
	}
	token, err := p.registry.Lookup(req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSwapFailed, err)
	}
	base := p.registry.Base()
	amountIn := ToBaseUnits(req.AmountIn, base.Decimals)
	if amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount %s %s is below one base unit", ErrSwapFailed, req.AmountIn, base.Symbol)
	}

	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%s:%d", req.Symbol, amountIn, time.Now().UnixNano())))
	p.logger.Warn("[Dry Run] Simulating swap",
		zap.String("symbol", req.Symbol),
		zap.String("amount_in", amountIn.String()),
		zap.String("tx", hash.Hex()),
	)
	return &Receipt{
		Symbol:       req.Symbol,
		TxHash:       hash,
		AmountIn:     amountIn,
		AmountOutMin: MinAmountOut(req.AmountIn, req.EntryPrice, token.Decimals, p.maxSlippageBps),
		Simulated:    true,
	}, nil
}
