package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook decodes strings and numbers into decimal.Decimal. Strings are
// preferred in config files because they keep the exact value.
func decimalHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return decimal.Zero, nil
			}
			return decimal.NewFromString(strings.TrimSpace(v))
		case float64:
			return decimal.NewFromFloat(v), nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case decimal.Decimal:
			return v, nil
		}
		return data, nil
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the values a session cannot start without. Every failure
// here happens before the first trade.
func (c *Config) Validate() error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if c.Oracle.MaxAttempts < 1 {
		return invalid("oracle.max_attempts must be at least 1, got %d", c.Oracle.MaxAttempts)
	}
	if c.Oracle.RetryDelay < 0 {
		return invalid("oracle.retry_delay must not be negative")
	}
	if c.Chain.MaxSlippageBps < 0 || c.Chain.MaxSlippageBps >= 10000 {
		return invalid("chain.max_slippage_bps must be in [0, 10000), got %d", c.Chain.MaxSlippageBps)
	}
	if c.Storage.CapitalFile == "" {
		return invalid("storage.capital_file is required")
	}
	if c.Trading.DryRun {
		return nil
	}
	return c.Chain.validate()
}

func (t *Trading) validate() error {
	if !t.StartCapital.IsPositive() {
		return invalid("trading.start_capital must be positive, got %s", t.StartCapital)
	}
	override, err := t.Override()
	if err != nil {
		return err
	}
	if override.Valid && !override.Decimal.IsPositive() {
		return invalid("trading.capital_override must be positive, got %s", override.Decimal)
	}
	for name, pct := range map[string]decimal.Decimal{
		"take_profit_pct":  t.TakeProfitPct,
		"stop_loss_pct":    t.StopLossPct,
		"daily_target_pct": t.DailyTargetPct,
	} {
		if pct.IsNegative() {
			return invalid("trading.%s must not be negative, got %s", name, pct)
		}
	}
	if t.StopLossPct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return invalid("trading.stop_loss_pct must be below 1, got %s", t.StopLossPct)
	}
	if !t.RiskFraction.IsPositive() {
		return invalid("trading.risk_fraction must be positive, got %s", t.RiskFraction)
	}
	if t.MaxTrades < 1 {
		return invalid("trading.max_trades must be at least 1, got %d", t.MaxTrades)
	}
	if t.SettleDelay < 0 {
		return invalid("trading.settle_delay must not be negative")
	}
	if t.WinProbability < 0 || t.WinProbability > 1 {
		return invalid("trading.win_probability must be in [0, 1], got %v", t.WinProbability)
	}
	switch t.Outcome {
	case "random", "market":
	default:
		return invalid("trading.outcome must be random or market, got %q", t.Outcome)
	}
	return nil
}

// Override parses the starting-capital override. The result is not Valid
// when no override is set.
func (t *Trading) Override() (decimal.NullDecimal, error) {
	if strings.TrimSpace(t.CapitalOverride) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(t.CapitalOverride))
	if err != nil {
		return decimal.NullDecimal{}, invalid("trading.capital_override %q is not a decimal", t.CapitalOverride)
	}
	return decimal.NewNullDecimal(d), nil
}

func (c *Chain) validate() error {
	if c.RPCURL == "" {
		return invalid("chain.rpc_url is required")
	}
	if c.PrivateKey == "" {
		return invalid("chain.private_key is required")
	}
	if !common.IsHexAddress(c.WalletAddress) {
		return invalid("chain.wallet_address %q is not a valid address", c.WalletAddress)
	}
	if !common.IsHexAddress(c.RouterAddress) {
		return invalid("chain.router_address %q is not a valid address", c.RouterAddress)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
	if err != nil {
		return invalid("chain.private_key cannot be parsed")
	}
	if derived := crypto.PubkeyToAddress(key.PublicKey); derived != common.HexToAddress(c.WalletAddress) {
		return invalid("chain.private_key does not belong to wallet %s", c.WalletAddress)
	}
	if c.PoolFee <= 0 {
		return invalid("chain.pool_fee must be positive, got %d", c.PoolFee)
	}
	if c.ApproveGasLimit == 0 || c.SwapGasLimit == 0 {
		return invalid("chain gas limits must be positive")
	}
	if c.Deadline <= 0 {
		return invalid("chain.deadline must be positive")
	}
	if c.ReceiptPollInterval <= 0 || c.ReceiptTimeout <= 0 {
		return invalid("chain receipt polling values must be positive")
	}
	return nil
}
