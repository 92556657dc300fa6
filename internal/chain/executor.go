// Package chain submits swaps from the base settlement asset into a
// tradeable token through a Uniswap V3 style router.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"arbitrum-trade-bot-go/internal/config"
	"arbitrum-trade-bot-go/internal/tokens"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrSwapFailed wraps every error returned by an Executor.
	ErrSwapFailed = errors.New("swap failed")

	ErrTransactionReverted = errors.New("transaction reverted")
)

// SwapRequest describes one buy of Symbol with AmountIn of the base asset.
type SwapRequest struct {
	Symbol     string
	AmountIn   decimal.Decimal
	EntryPrice decimal.Decimal // USD per token, used for the minimum-output bound
}

// Receipt is the confirmation of a completed swap.
type Receipt struct {
	Symbol        string
	TxHash        common.Hash
	ApproveTxHash common.Hash // zero when the existing allowance covered the swap
	BlockNumber   uint64
	GasUsed       uint64
	AmountIn      *big.Int
	AmountOutMin  *big.Int
	Simulated     bool
}

// Executor places a swap and blocks until it is confirmed.
type Executor interface {
	Swap(ctx context.Context, req SwapRequest) (*Receipt, error)
}

// Backend is the subset of *ethclient.Client used by RouterExecutor.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// exactInputSingleParams mirrors ISwapRouter.ExactInputSingleParams.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// RouterExecutor signs and sends approve and exactInputSingle transactions.
type RouterExecutor struct {
	backend    Backend
	registry   *tokens.Registry
	cfg        config.Chain
	key        *ecdsa.PrivateKey
	wallet     common.Address
	router     common.Address
	chainID    *big.Int
	erc20      abi.ABI
	swapRouter abi.ABI
	now        func() time.Time
	logger     *zap.Logger
}

var _ Executor = (*RouterExecutor)(nil)

// Dial connects to cfg.RPCURL and builds a RouterExecutor on top of it. The
// returned func closes the connection.
func Dial(ctx context.Context, cfg config.Chain, registry *tokens.Registry, logger *zap.Logger) (*RouterExecutor, func(), error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rpc: %w", err)
	}
	exec, err := NewRouterExecutor(ctx, client, cfg, registry, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return exec, client.Close, nil
}

// NewRouterExecutor validates credentials and contract interfaces up front so
// that none of these failures can surface mid-session.
func NewRouterExecutor(ctx context.Context, backend Backend, cfg config.Chain, registry *tokens.Registry, logger *zap.Logger) (*RouterExecutor, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	erc20, err := erc20ABI()
	if err != nil {
		return nil, err
	}
	router, err := swapRouterABI()
	if err != nil {
		return nil, err
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	e := &RouterExecutor{
		backend:    backend,
		registry:   registry,
		cfg:        cfg,
		key:        key,
		wallet:     crypto.PubkeyToAddress(key.PublicKey),
		router:     common.HexToAddress(cfg.RouterAddress),
		chainID:    chainID,
		erc20:      erc20,
		swapRouter: router,
		now:        time.Now,
		logger:     logger.Named("executor"),
	}
	e.logger.Info("Swap executor ready",
		zap.String("wallet", e.wallet.Hex()),
		zap.String("router", e.router.Hex()),
		zap.String("chain_id", chainID.String()),
	)
	if cfg.MaxSlippageBps == 0 {
		e.logger.Warn("Slippage protection disabled, swaps accept any output amount")
	}
	return e, nil
}

// Swap grants the router an allowance if needed, swaps and waits for both
// receipts. Every error wraps ErrSwapFailed.
func (e *RouterExecutor) Swap(ctx context.Context, req SwapRequest) (*Receipt, error) {
	token, err := e.registry.Lookup(req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSwapFailed, err)
	}
	base := e.registry.Base()
	amountIn := ToBaseUnits(req.AmountIn, base.Decimals)
	if amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount %s %s is below one base unit", ErrSwapFailed, req.AmountIn, base.Symbol)
	}
	minOut := MinAmountOut(req.AmountIn, req.EntryPrice, token.Decimals, e.cfg.MaxSlippageBps)

	l := e.logger.With(
		zap.String("symbol", req.Symbol),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out_min", minOut.String()),
	)

	approveHash, err := e.ensureAllowance(ctx, base.Address, amountIn)
	if err != nil {
		l.Error("Allowance grant failed", zap.Error(err))
		return nil, fmt.Errorf("%w: allowance: %w", ErrSwapFailed, err)
	}

	params := exactInputSingleParams{
		TokenIn:           base.Address,
		TokenOut:          token.Address,
		Fee:               big.NewInt(e.cfg.PoolFee),
		Recipient:         e.wallet,
		Deadline:          big.NewInt(e.now().Add(e.cfg.Deadline).Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: big.NewInt(0),
	}
	data, err := e.swapRouter.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrSwapFailed, ErrMalformedABI, err)
	}

	l.Info("Submitting swap...")
	tx, err := e.send(ctx, e.router, data, e.cfg.SwapGasLimit)
	if err != nil {
		l.Error("Failed to submit swap", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSwapFailed, err)
	}
	receipt, err := e.waitMined(ctx, tx.Hash())
	if err != nil {
		l.Error("Swap not confirmed", zap.String("tx", tx.Hash().Hex()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSwapFailed, err)
	}
	l.Info("Swap confirmed",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)

	return &Receipt{
		Symbol:        req.Symbol,
		TxHash:        tx.Hash(),
		ApproveTxHash: approveHash,
		BlockNumber:   receipt.BlockNumber.Uint64(),
		GasUsed:       receipt.GasUsed,
		AmountIn:      amountIn,
		AmountOutMin:  minOut,
	}, nil
}

// ensureAllowance approves the router for amount when the current allowance
// is lower, and waits for the approval to be mined.
func (e *RouterExecutor) ensureAllowance(ctx context.Context, tokenAddr common.Address, amount *big.Int) (common.Hash, error) {
	current, err := e.allowance(ctx, tokenAddr)
	if err != nil {
		return common.Hash{}, err
	}
	if current.Cmp(amount) >= 0 {
		e.logger.Debug("Existing allowance covers swap", zap.String("allowance", current.String()))
		return common.Hash{}, nil
	}

	data, err := e.erc20.Pack("approve", e.router, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrMalformedABI, err)
	}
	tx, err := e.send(ctx, tokenAddr, data, e.cfg.ApproveGasLimit)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := e.waitMined(ctx, tx.Hash()); err != nil {
		return common.Hash{}, err
	}
	e.logger.Info("Allowance granted", zap.String("tx", tx.Hash().Hex()), zap.String("amount", amount.String()))
	return tx.Hash(), nil
}

func (e *RouterExecutor) allowance(ctx context.Context, tokenAddr common.Address) (*big.Int, error) {
	data, err := e.erc20.Pack("allowance", e.wallet, e.router)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedABI, err)
	}
	out, err := e.backend.CallContract(ctx, ethereum.CallMsg{From: e.wallet, To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	values, err := e.erc20.Unpack("allowance", out)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("%w: allowance result: %v", ErrMalformedABI, err)
	}
	current, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: allowance result has type %T", ErrMalformedABI, values[0])
	}
	return current, nil
}

// send signs a legacy transaction from the wallet and broadcasts it.
func (e *RouterExecutor) send(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Transaction, error) {
	nonce, err := e.backend.PendingNonceAt(ctx, e.wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	e.logger.Debug("Transaction sent", zap.String("tx", signed.Hash().Hex()), zap.Uint64("nonce", nonce))
	return signed, nil
}

// waitMined polls for the receipt until it appears or ReceiptTimeout passes.
func (e *RouterExecutor) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			e.logger.Warn("Receipt lookup failed, retrying", zap.String("tx", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// ToBaseUnits converts a decimal token amount to integer base units,
// truncating anything below one unit.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

// MinAmountOut is the least acceptable output for a buy of amountIn at price
// with the given slippage tolerance. Zero bps disables the bound.
func MinAmountOut(amountIn, price decimal.Decimal, tokenDecimals int32, slippageBps int64) *big.Int {
	if slippageBps <= 0 || !price.IsPositive() {
		return big.NewInt(0)
	}
	expected := amountIn.Div(price).Shift(tokenDecimals)
	keep := decimal.NewFromInt(10000 - slippageBps).Div(decimal.NewFromInt(10000))
	return expected.Mul(keep).Floor().BigInt()
}
