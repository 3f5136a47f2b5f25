package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ServerConfig параметры HTTP сервера и аутентификации
type ServerConfig struct {
	Port                 string
	JWTSecret            string
	OperatorPasswordHash string // bcrypt
	MetricsUser          string
	MetricsPassword      string
}

// BitgetConfig доступ к бирже
type BitgetConfig struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	BaseURL    string
	ProxyAddr  string // SOCKS5, host:port
}

// RiskConfig параметры риск-модели
type RiskConfig struct {
	EquityUSDT       float64
	SplitScalpingPct float64
	SplitIntradayPct float64
	RiskLegPct       float64
	RiskTotalCapPct  float64
	LeverageMin      int
	LeverageMax      int
}

// BehaviorConfig поведение конвейера
type BehaviorConfig struct {
	DryRun           bool
	Symbol           string
	BreakevenAfterTP int
	PollIntervalSec  int
	PriceSource      string // synthetic | bitget | bitget-ws | binance
}

type Config struct {
	DatabaseURL string
	Server      ServerConfig
	Bitget      BitgetConfig
	Risk        RiskConfig
	Behavior    BehaviorConfig
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Server: ServerConfig{
			Port:                 getEnv("PORT", "8080"),
			JWTSecret:            os.Getenv("JWT_SECRET"),
			OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
			MetricsUser:          getEnv("METRICS_USER", "metrics"),
			MetricsPassword:      os.Getenv("METRICS_PASSWORD"),
		},
		Bitget: BitgetConfig{
			APIKey:     os.Getenv("BITGET_API_KEY"),
			SecretKey:  os.Getenv("BITGET_SECRET_KEY"),
			Passphrase: os.Getenv("BITGET_PASSPHRASE"),
			BaseURL:    getEnv("BITGET_BASE_URL", "https://api.bitget.com"),
			ProxyAddr:  os.Getenv("PROXY_ADDR"),
		},
		Risk: RiskConfig{
			EquityUSDT:       getEnvFloat("EQUITY_USDT", 1000),
			SplitScalpingPct: getEnvFloat("SPLIT_SCALPING_PCT", 15),
			SplitIntradayPct: getEnvFloat("SPLIT_INTRADAY_PCT", 85),
			RiskLegPct:       getEnvFloat("RISK_LEG_PCT", 1.5),
			RiskTotalCapPct:  getEnvFloat("RISK_TOTAL_CAP_PCT", 3.0),
			LeverageMin:      getEnvInt("LEVERAGE_MIN", 10),
			LeverageMax:      getEnvInt("LEVERAGE_MAX", 25),
		},
		Behavior: BehaviorConfig{
			DryRun:           getEnvBool("DRY_RUN", true),
			Symbol:           getEnv("SYMBOL", "BTCUSDT_UMCBL"),
			BreakevenAfterTP: getEnvInt("BREAKEVEN_AFTER_TP", 2),
			PollIntervalSec:  getEnvInt("POLL_INTERVAL_SEC", 3),
			PriceSource:      getEnv("PRICE_SOURCE", "synthetic"),
		},
	}

	return cfg
}

// Validate проверяет согласованность конфигурации при старте
func (c *Config) Validate() error {
	if c.Risk.SplitScalpingPct+c.Risk.SplitIntradayPct != 100 {
		return fmt.Errorf("deposit splits must sum to 100, got %.1f + %.1f",
			c.Risk.SplitScalpingPct, c.Risk.SplitIntradayPct)
	}
	if c.Risk.LeverageMin <= 0 || c.Risk.LeverageMax < c.Risk.LeverageMin {
		return fmt.Errorf("invalid leverage range [%d, %d]", c.Risk.LeverageMin, c.Risk.LeverageMax)
	}
	if c.Risk.EquityUSDT <= 0 {
		return fmt.Errorf("EQUITY_USDT must be positive")
	}
	if c.Risk.RiskLegPct <= 0 || c.Risk.RiskTotalCapPct <= 0 {
		return fmt.Errorf("risk percentages must be positive")
	}
	if c.Behavior.Symbol == "" {
		return fmt.Errorf("SYMBOL is required")
	}
	if !c.Behavior.DryRun {
		if c.Bitget.APIKey == "" || c.Bitget.SecretKey == "" || c.Bitget.Passphrase == "" {
			return fmt.Errorf("Bitget API credentials are required when DRY_RUN=false")
		}
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Behavior.PriceSource {
	case "synthetic", "bitget", "bitget-ws", "binance":
	default:
		return fmt.Errorf("unknown PRICE_SOURCE %q", c.Behavior.PriceSource)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Config: invalid value for %s: %q, using default %.2f", key, v, def)
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Config: invalid value for %s: %q, using default %d", key, v, def)
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Config: invalid value for %s: %q, using default %v", key, v, def)
		return def
	}
	return b
}
