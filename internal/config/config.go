package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Chain    Chain    `mapstructure:"chain"`
	Oracle   Oracle   `mapstructure:"oracle"`
	Telegram Telegram `mapstructure:"telegram"`
	Trading  Trading  `mapstructure:"trading"`
	Tokens   Tokens   `mapstructure:"tokens"`
	Storage  Storage  `mapstructure:"storage"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Output   Output   `mapstructure:"output"`
}

// Chain holds the configuration for the EVM node, wallet and swap router.
type Chain struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	PrivateKey          string        `mapstructure:"private_key"`
	WalletAddress       string        `mapstructure:"wallet_address"`
	RouterAddress       string        `mapstructure:"router_address"`
	PoolFee             int64         `mapstructure:"pool_fee"`
	ApproveGasLimit     uint64        `mapstructure:"approve_gas_limit"`
	SwapGasLimit        uint64        `mapstructure:"swap_gas_limit"`
	Deadline            time.Duration `mapstructure:"deadline"`
	MaxSlippageBps      int64         `mapstructure:"max_slippage_bps"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	ReceiptTimeout      time.Duration `mapstructure:"receipt_timeout"`
}

// Oracle holds the configuration for the price feed.
type Oracle struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Telegram holds the notification channel credentials. Both empty disables
// notifications. ChatID is a numeric chat id or an @channel username.
type Telegram struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Trading holds the configuration for the session loop and risk accounting.
type Trading struct {
	StartCapital    decimal.Decimal `mapstructure:"start_capital"`
	CapitalOverride string          `mapstructure:"capital_override"`
	Reset           bool            `mapstructure:"reset"`
	TakeProfitPct   decimal.Decimal `mapstructure:"take_profit_pct"`
	StopLossPct     decimal.Decimal `mapstructure:"stop_loss_pct"`
	DailyTargetPct  decimal.Decimal `mapstructure:"daily_target_pct"`
	RiskFraction    decimal.Decimal `mapstructure:"risk_fraction"`
	MaxTrades       int             `mapstructure:"max_trades"`
	SettleDelay     time.Duration   `mapstructure:"settle_delay"`
	WinProbability  float64         `mapstructure:"win_probability"`
	Outcome         string          `mapstructure:"outcome"`
	DryRun          bool            `mapstructure:"dry_run"`
	ApiPort         int             `mapstructure:"api_port"`
}

// Token describes one entry of the token registry.
type Token struct {
	Symbol        string          `mapstructure:"symbol"`
	Address       string          `mapstructure:"address"`
	Decimals      int32           `mapstructure:"decimals"`
	FeedID        string          `mapstructure:"feed_id"`
	FallbackPrice decimal.Decimal `mapstructure:"fallback_price"`
}

// Tokens overrides the built-in registry when Tradeable is non-empty.
type Tokens struct {
	Base      Token   `mapstructure:"base"`
	Tradeable []Token `mapstructure:"tradeable"`
}

// Storage holds the location of the persisted capital value.
type Storage struct {
	CapitalFile string `mapstructure:"capital_file"`
}

// Server holds the configuration for the dashboard web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the trade journal.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Output controls where the final session summary is published.
type Output struct {
	StepOutputFile string `mapstructure:"step_output_file"`
}

// envAliases binds keys to the variable names used by existing deployments.
var envAliases = map[string][]string{
	"chain.rpc_url":            {"CHAIN_RPC_URL", "ARBITRUM_RPC"},
	"chain.private_key":        {"CHAIN_PRIVATE_KEY", "PRIVATE_KEY"},
	"chain.wallet_address":     {"CHAIN_WALLET_ADDRESS", "PUBLIC_ADDRESS"},
	"chain.router_address":     {"CHAIN_ROUTER_ADDRESS", "UNISWAP_ROUTER_ADDRESS"},
	"telegram.bot_token":       {"TELEGRAM_BOT_TOKEN"},
	"telegram.chat_id":         {"TELEGRAM_CHAT_ID"},
	"trading.capital_override": {"TRADING_CAPITAL_OVERRIDE", "STARTING_CAPITAL"},
	"trading.reset":            {"TRADING_RESET", "RESET_CAPITAL"},
	"output.step_output_file":  {"OUTPUT_STEP_OUTPUT_FILE", "GITHUB_OUTPUT"},
}

// setDefaults registers every key. viper's Unmarshal only sees known keys,
// so a key without a default could never be set from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.private_key", "")
	v.SetDefault("chain.wallet_address", "")
	v.SetDefault("chain.router_address", "")
	v.SetDefault("chain.pool_fee", 3000)
	v.SetDefault("chain.approve_gas_limit", 200000)
	v.SetDefault("chain.swap_gas_limit", 400000)
	v.SetDefault("chain.deadline", 5*time.Minute)
	v.SetDefault("chain.max_slippage_bps", 0)
	v.SetDefault("chain.receipt_poll_interval", 2*time.Second)
	v.SetDefault("chain.receipt_timeout", 3*time.Minute)

	v.SetDefault("oracle.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.retry_delay", 2*time.Second)
	v.SetDefault("oracle.timeout", 10*time.Second)
	v.SetDefault("oracle.rate_limit", 0.5) // requests per second, public tier
	v.SetDefault("oracle.rate_limit_burst", 1)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.timeout", 10*time.Second)

	v.SetDefault("trading.start_capital", "50")
	v.SetDefault("trading.capital_override", "")
	v.SetDefault("trading.reset", false)
	v.SetDefault("trading.take_profit_pct", "0.25")
	v.SetDefault("trading.stop_loss_pct", "0.05")
	v.SetDefault("trading.daily_target_pct", "0.20")
	v.SetDefault("trading.risk_fraction", "0.20")
	v.SetDefault("trading.max_trades", 5)
	v.SetDefault("trading.settle_delay", time.Second)
	v.SetDefault("trading.win_probability", 0.65)
	v.SetDefault("trading.outcome", "random")
	v.SetDefault("trading.dry_run", false)
	v.SetDefault("trading.api_port", 0)

	v.SetDefault("storage.capital_file", "capital_live.json")
	v.SetDefault("database.dsn", "trades.db")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("output.step_output_file", "")
}

// LoadConfig reads configuration from an optional config.yml in path, a .env
// file in the working directory and environment variables. Callers apply any
// command line overrides and then call Validate.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is normal in CI where variables come from the runner.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envAliases {
		if err = v.BindEnv(append([]string{key}, names...)...); err != nil {
			return
		}
	}

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		err = nil
	}

	hooks := mapstructure.ComposeDecodeHookFunc(
		decimalHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err = v.Unmarshal(&config, viper.DecodeHook(hooks)); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}
