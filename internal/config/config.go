package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type ScraperCfg struct {
	URLFile            string `yaml:"url_file"`
	ProfitThresholdPct string `yaml:"profit_threshold_pct"`
	Concurrency        int    `yaml:"concurrency"`
	MaxRetries         int    `yaml:"max_retries"`
	RequestTimeoutMs   int    `yaml:"request_timeout_ms"`
	RetryDelayMs       int    `yaml:"retry_delay_ms"`
	PollIntervalMs     int    `yaml:"poll_interval_ms"`
	UserAgent          string `yaml:"user_agent"`
}

type VerifyCfg struct {
	StartingNotional string `yaml:"starting_notional"`
	PassRatio        string `yaml:"pass_ratio"`
}

type BinanceCfg struct {
	RestURL string `yaml:"rest_url"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	BaseCurrency string     `yaml:"base_currency"`
	Scraper      ScraperCfg `yaml:"scraper"`
	Verify       VerifyCfg  `yaml:"verify"`
	Binance      BinanceCfg `yaml:"binance"`
	Redis        RedisCfg   `yaml:"redis"`
	Metrics      MetricsCfg `yaml:"metrics"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.BaseCurrency == "" {
		c.BaseCurrency = "USDT"
	}
	if c.Scraper.URLFile == "" {
		c.Scraper.URLFile = "./usdt_url_list.csv"
	}
	if c.Scraper.ProfitThresholdPct == "" {
		c.Scraper.ProfitThresholdPct = "1"
	}
	if c.Scraper.Concurrency <= 0 {
		c.Scraper.Concurrency = 50
	}
	if c.Scraper.MaxRetries <= 0 {
		c.Scraper.MaxRetries = 3
	}
	if c.Scraper.RequestTimeoutMs <= 0 {
		c.Scraper.RequestTimeoutMs = 10000
	}
	if c.Scraper.RetryDelayMs <= 0 {
		c.Scraper.RetryDelayMs = 500
	}
	if c.Scraper.PollIntervalMs <= 0 {
		c.Scraper.PollIntervalMs = 1000
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.93 Safari/537.36"
	}
	if c.Verify.StartingNotional == "" {
		c.Verify.StartingNotional = "100"
	}
	if c.Verify.PassRatio == "" {
		c.Verify.PassRatio = "1"
	}
	if c.Binance.RestURL == "" {
		c.Binance.RestURL = "https://api.binance.com"
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "verify:stream"
	}

	// decimal knobs have to parse at startup, not mid-cycle
	if _, err := decimal.NewFromString(c.Scraper.ProfitThresholdPct); err != nil {
		return nil, fmt.Errorf("bad profit_threshold_pct %q: %w", c.Scraper.ProfitThresholdPct, err)
	}
	if _, err := decimal.NewFromString(c.Verify.StartingNotional); err != nil {
		return nil, fmt.Errorf("bad starting_notional %q: %w", c.Verify.StartingNotional, err)
	}
	if _, err := decimal.NewFromString(c.Verify.PassRatio); err != nil {
		return nil, fmt.Errorf("bad pass_ratio %q: %w", c.Verify.PassRatio, err)
	}
	return &c, nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scraper.RequestTimeoutMs) * time.Millisecond
}
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Scraper.RetryDelayMs) * time.Millisecond
}
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scraper.PollIntervalMs) * time.Millisecond
}

// ProfitThreshold is the scrape-side percent cutoff (strict greater-than).
func (c *Config) ProfitThreshold() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Scraper.ProfitThresholdPct)
	return d
}

// StartingNotional is the simulated trade size in BaseCurrency.
func (c *Config) StartingNotional() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Verify.StartingNotional)
	return d
}

// PassRatio is the verification-side cutoff: live ratio strictly above
// it counts as a confirmed opportunity.
func (c *Config) PassRatio() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Verify.PassRatio)
	return d
}
