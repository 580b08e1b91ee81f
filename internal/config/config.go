// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"intrabot-go/internal/fyers"
)

// Strategy modes supported by the bot.
const (
	ModeCrossover = "crossover"
	ModeMMR       = "mmr"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	TokenFile   string `yaml:"token_file"`
}

// Broker describes brokerage connectivity. Credentials never live here; they
// come from the environment (see LoadCredentials).
type Broker struct {
	BaseURL string `yaml:"base_url"`
	Socket  Socket `yaml:"socket"`
}

// Socket configures the optional streaming last-price feed.
type Socket struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Strategy selects which strategy loop runs and its cadence.
type Strategy struct {
	Mode             string `yaml:"mode"`
	PollIntervalSecs int    `yaml:"poll_interval_secs"`
	PacingMs         int    `yaml:"pacing_ms"`
}

// TimeOfDay is a wall-clock HH:MM value in the exchange's local time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// UnmarshalYAML parses "HH:MM".
func (t *TimeOfDay) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML renders "HH:MM".
func (t TimeOfDay) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes converts to minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// IsZero reports an unset value.
func (t TimeOfDay) IsZero() bool { return t.Hour == 0 && t.Minute == 0 }

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", raw)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// Window is a trading time window. End is exclusive. Windows that wrap past
// midnight are supported (start > end).
type Window struct {
	Start TimeOfDay `yaml:"start"`
	End   TimeOfDay `yaml:"end"`
}

// Contains reports whether the wall-clock part of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	start, end := w.Start.Minutes(), w.End.Minutes()
	if start <= end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// Market is one tradable underlying with its option chain parameters and
// trading window. Only one market is active at a time, chosen by wall clock.
type Market struct {
	Name           string `yaml:"name"`
	Underlying     string `yaml:"underlying"`
	Exchange       string `yaml:"exchange"`
	OptionBase     string `yaml:"option_base"`
	Expiry         string `yaml:"expiry"`
	StrikeInterval int    `yaml:"strike_interval"`
	Window         Window `yaml:"window"`
}

// Crossover groups the EMA crossover strategy parameters.
type Crossover struct {
	Fast         int      `yaml:"fast"`
	Slow         int      `yaml:"slow"`
	Resolution   string   `yaml:"resolution"`
	LookbackDays int      `yaml:"lookback_days"`
	StopLossPct  float64  `yaml:"stop_loss_pct"`
	TargetPct    float64  `yaml:"target_pct"`
	LotSize      int      `yaml:"lot_size"`
	Markets      []Market `yaml:"markets"`
}

// MMR groups the multi-stock strategy parameters.
type MMR struct {
	IndexSymbol   string    `yaml:"index_symbol"`
	Stocks        []string  `yaml:"stocks"`
	Resolution    string    `yaml:"resolution"`
	LookbackDays  int       `yaml:"lookback_days"`
	EMAFast       int       `yaml:"ema_fast"`
	EMASlow       int       `yaml:"ema_slow"`
	ATRPeriod     int       `yaml:"atr_period"`
	GapPct        float64   `yaml:"gap_pct"`
	RangeATRMult  float64   `yaml:"range_atr_mult"`
	SLATRMult     float64   `yaml:"sl_atr_mult"`
	TargetATRMult float64   `yaml:"target_atr_mult"`
	RiskPerTrade  float64   `yaml:"risk_per_trade"`
	MaxCapital    float64   `yaml:"max_capital"`
	SquareOff     TimeOfDay `yaml:"square_off"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Broker    Broker    `yaml:"broker"`
	Strategy  Strategy  `yaml:"strategy"`
	Crossover Crossover `yaml:"crossover"`
	MMR       MMR       `yaml:"mmr"`
}

// Load reads a YAML file from disk, hydrates a Config struct, applies
// defaults, and validates the enabled strategy block.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadCredentials reads the app registration from the environment. Call
// godotenv.Load first when a .env file is in play.
func LoadCredentials() (fyers.Credentials, error) {
	creds := fyers.Credentials{
		AppID:       os.Getenv("FYERS_APP_ID"),
		SecretKey:   os.Getenv("FYERS_SECRET_KEY"),
		RedirectURI: os.Getenv("FYERS_REDIRECT_URI"),
	}
	if creds.AppID == "" || creds.SecretKey == "" {
		return fyers.Credentials{}, fmt.Errorf("FYERS_APP_ID and FYERS_SECRET_KEY must be set")
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = "https://www.google.com"
	}
	return creds, nil
}

func (c *Config) applyDefaults() {
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9026"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.TokenFile == "" {
		c.App.TokenFile = "access_token.txt"
	}
	if c.Strategy.Mode == "" {
		c.Strategy.Mode = ModeCrossover
	}
	c.Strategy.Mode = strings.ToLower(strings.TrimSpace(c.Strategy.Mode))
	if c.Strategy.PollIntervalSecs <= 0 {
		c.Strategy.PollIntervalSecs = 60
	}
	if c.Strategy.PacingMs <= 0 {
		c.Strategy.PacingMs = 500
	}
	if c.Crossover.Fast <= 0 {
		c.Crossover.Fast = 9
	}
	if c.Crossover.Slow <= 0 {
		c.Crossover.Slow = 21
	}
	if c.Crossover.Resolution == "" {
		c.Crossover.Resolution = "5"
	}
	if c.Crossover.LookbackDays <= 0 {
		c.Crossover.LookbackDays = 5
	}
	if c.Crossover.StopLossPct <= 0 {
		c.Crossover.StopLossPct = 0.5
	}
	if c.Crossover.TargetPct <= 0 {
		c.Crossover.TargetPct = 1.0
	}
	if c.Crossover.LotSize <= 0 {
		c.Crossover.LotSize = 1
	}
	if c.MMR.Resolution == "" {
		c.MMR.Resolution = "5"
	}
	if c.MMR.LookbackDays <= 0 {
		c.MMR.LookbackDays = 5
	}
	if c.MMR.EMAFast <= 0 {
		c.MMR.EMAFast = 9
	}
	if c.MMR.EMASlow <= 0 {
		c.MMR.EMASlow = 21
	}
	if c.MMR.ATRPeriod <= 0 {
		c.MMR.ATRPeriod = 14
	}
	if c.MMR.GapPct <= 0 {
		c.MMR.GapPct = 0.5
	}
	if c.MMR.RangeATRMult <= 0 {
		c.MMR.RangeATRMult = 1.25
	}
	if c.MMR.SLATRMult <= 0 {
		c.MMR.SLATRMult = 1.5
	}
	if c.MMR.TargetATRMult <= 0 {
		c.MMR.TargetATRMult = 3.0
	}
	if c.MMR.RiskPerTrade <= 0 {
		c.MMR.RiskPerTrade = 0.01
	}
	if c.MMR.SquareOff.IsZero() {
		c.MMR.SquareOff = TimeOfDay{Hour: 15, Minute: 10}
	}
}

func (c *Config) validate() error {
	switch c.Strategy.Mode {
	case ModeCrossover:
		if len(c.Crossover.Markets) == 0 {
			return fmt.Errorf("crossover.markets is empty")
		}
		if c.Crossover.Fast >= c.Crossover.Slow {
			return fmt.Errorf("crossover fast period %d must be below slow %d", c.Crossover.Fast, c.Crossover.Slow)
		}
		for _, m := range c.Crossover.Markets {
			if m.Underlying == "" || m.Exchange == "" || m.OptionBase == "" || m.Expiry == "" {
				return fmt.Errorf("market %q missing underlying/exchange/option_base/expiry", m.Name)
			}
			if m.StrikeInterval <= 0 {
				return fmt.Errorf("market %q strike_interval must be positive", m.Name)
			}
		}
	case ModeMMR:
		if c.MMR.IndexSymbol == "" {
			return fmt.Errorf("mmr.index_symbol is empty")
		}
		if len(c.MMR.Stocks) == 0 {
			return fmt.Errorf("mmr.stocks is empty")
		}
		if c.MMR.MaxCapital <= 0 {
			return fmt.Errorf("mmr.max_capital must be positive")
		}
	default:
		return fmt.Errorf("unknown strategy mode %q", c.Strategy.Mode)
	}
	if c.Broker.Socket.Enabled && c.Broker.Socket.URL == "" {
		return fmt.Errorf("broker.socket.url empty but enabled")
	}
	return nil
}
