package config

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"gopkg.in/yaml.v3"
)

var ErrEmptyToken = errors.New("empty tradier api token")

type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

const (
	SandboxEndpoint    = "https://sandbox.tradier.com"
	ProductionEndpoint = "https://api.tradier.com"

	legacyProductionEndpoint = "https://www.tradier.com"
)

func EndpointFor(env Environment) (string, error) {
	switch env {
	case Sandbox:
		return SandboxEndpoint, nil
	case Production:
		return ProductionEndpoint, nil
	}
	return "", fmt.Errorf("unknown environment %q", string(env))
}

// EnvironmentFor maps one of the two recognized base URLs back to its environment.
func EnvironmentFor(endpoint string) (Environment, error) {
	switch strings.TrimRight(endpoint, "/") {
	case SandboxEndpoint:
		return Sandbox, nil
	case ProductionEndpoint, legacyProductionEndpoint:
		return Production, nil
	}
	return "", fmt.Errorf("unrecognized tradier endpoint %q", endpoint)
}

type TradierConfig struct {
	Environment        Environment   `yaml:"environment"`
	Endpoint           string        `yaml:"endpoint"`
	Token              string        `yaml:"-"`
	Timeout            time.Duration `yaml:"timeout"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
}

const (
	_timeoutDefault            = 15 * time.Second
	_rateLimitPerMinuteDefault = 120
)

func (c *TradierConfig) Setup() error {
	c.Token = cmp.Or(c.Token, os.Getenv("TRADIER_TOKEN"))
	if c.Token == "" {
		return ErrEmptyToken
	}

	c.Endpoint = cmp.Or(os.Getenv("TRADIER_ENDPOINT"), c.Endpoint)
	if c.Endpoint == "" {
		env := cmp.Or(c.Environment, Sandbox)
		endpoint, err := EndpointFor(env)
		if err != nil {
			return err
		}
		c.Endpoint = endpoint
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return fmt.Errorf("%w: bad endpoint", err)
	}
	env, err := EnvironmentFor(c.Endpoint)
	if err != nil {
		return err
	}
	if c.Environment != "" && c.Environment != env {
		return fmt.Errorf("endpoint %s doesn't belong to %s environment", c.Endpoint, c.Environment)
	}
	c.Environment = env

	if c.Timeout <= 0 {
		c.Timeout = _timeoutDefault
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = _rateLimitPerMinuteDefault
	}

	return nil
}

type RefreshConfig struct {
	Interval         time.Duration `yaml:"interval"`
	IncludeAllOrders bool          `yaml:"include_all_orders"`
	OnStart          *bool         `yaml:"on_start"`
}

const (
	_refreshIntervalDefault = 30 * time.Second
	_minRefreshInterval     = time.Second
)

func (c *RefreshConfig) Setup() {
	if c.Interval <= 0 {
		c.Interval = _refreshIntervalDefault
	}
	if c.Interval < _minRefreshInterval {
		c.Interval = _minRefreshInterval
	}
	if c.OnStart == nil {
		onStart := true
		c.OnStart = &onStart
	}
}

type OrdersConfig struct {
	DefaultSide     model.Side     `yaml:"default_side"`
	DefaultQuantity int64          `yaml:"default_quantity"`
	DefaultDuration model.Duration `yaml:"default_duration"`
	TagPrefix       string         `yaml:"tag_prefix"`
}

const (
	_defaultSide     = model.Buy
	_defaultQuantity = 1
	_defaultDuration = model.GTC
	_tagPrefix       = "dashboard"
)

func (c *OrdersConfig) Setup() error {
	c.DefaultSide = cmp.Or(c.DefaultSide, _defaultSide)
	if err := c.DefaultSide.Validate(); err != nil {
		return err
	}
	if c.DefaultQuantity <= 0 {
		c.DefaultQuantity = _defaultQuantity
	}
	c.DefaultDuration = cmp.Or(c.DefaultDuration, _defaultDuration)
	if err := c.DefaultDuration.Validate(); err != nil {
		return err
	}
	c.TagPrefix = cmp.Or(c.TagPrefix, _tagPrefix)
	return nil
}

func (c OrdersConfig) Defaults() model.OrderDefaults {
	return model.OrderDefaults{
		Side:     c.DefaultSide,
		Quantity: c.DefaultQuantity,
		Duration: c.DefaultDuration,
	}
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"` // in-memory journal capacity
}

type DashboardConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tradier  TradierConfig `yaml:"tradier"`
	Refresh  RefreshConfig `yaml:"refresh"`
	Orders   OrdersConfig  `yaml:"orders"`
	Server   ServerConfig  `yaml:"server"`
	Journal  JournalConfig `yaml:"journal"`
}

func (c *DashboardConfig) ValidateAndSetup() error {
	c.LogLevel = cmp.Or(c.LogLevel, "info")

	if err := c.Tradier.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup tradier", err)
	}
	c.Refresh.Setup()
	if err := c.Orders.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup orders", err)
	}
	c.Server.Port = cmp.Or(c.Server.Port, "8080")
	if c.Journal.Size <= 0 {
		c.Journal.Size = 256
	}

	return nil
}

func LoadDashboardConfig(filename string) (DashboardConfig, error) {
	var cfg DashboardConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
