package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/coint"
	"github.com/rustyeddy/pairtrader/errs"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/pipeline"
	"github.com/rustyeddy/pairtrader/position"
	"github.com/rustyeddy/pairtrader/sweep"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// PAIRS_RULES_ENTRY_THRESHOLD=2.5.
const EnvPrefix = "PAIRS"

// Config represents the complete research run configuration
type Config struct {
	Data       DataConfig       `json:"data" yaml:"data" envconfig:"DATA"`
	Estimation EstimationConfig `json:"estimation" yaml:"estimation" envconfig:"ESTIMATION"`
	Signal     SignalConfig     `json:"signal" yaml:"signal" envconfig:"SIGNAL"`
	Rules      RulesConfig      `json:"rules" yaml:"rules" envconfig:"RULES"`
	Backtest   BacktestConfig   `json:"backtest" yaml:"backtest" envconfig:"BACKTEST"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep" envconfig:"SWEEP"`
	Journal    JournalConfig    `json:"journal" yaml:"journal" envconfig:"JOURNAL"`
	Log        LogConfig        `json:"log" yaml:"log" envconfig:"LOG"`
}

// DataConfig says where prices come from and how to split them. Either
// PairFile (date,A,B) or both SeriesA and SeriesB (date,price) are used.
// SplitDate wins over TrainFraction when both are set.
type DataConfig struct {
	PairFile      string  `json:"pair_file,omitempty" yaml:"pair_file,omitempty" envconfig:"PAIR_FILE"`
	SeriesA       string  `json:"series_a,omitempty" yaml:"series_a,omitempty" envconfig:"SERIES_A"`
	SeriesB       string  `json:"series_b,omitempty" yaml:"series_b,omitempty" envconfig:"SERIES_B"`
	SymbolA       string  `json:"symbol_a,omitempty" yaml:"symbol_a,omitempty" envconfig:"SYMBOL_A"`
	SymbolB       string  `json:"symbol_b,omitempty" yaml:"symbol_b,omitempty" envconfig:"SYMBOL_B"`
	SplitDate     string  `json:"split_date,omitempty" yaml:"split_date,omitempty" envconfig:"SPLIT_DATE" validate:"omitempty,date"`
	TrainFraction float64 `json:"train_fraction" yaml:"train_fraction" envconfig:"TRAIN_FRACTION" validate:"gt=0,lt=1"`
}

// EstimationConfig controls the cointegration screen on the train window.
type EstimationConfig struct {
	MaxLag        int     `json:"max_lag" yaml:"max_lag" envconfig:"MAX_LAG" validate:"gte=0,lte=24"`
	Significance  float64 `json:"significance" yaml:"significance" envconfig:"SIGNIFICANCE" validate:"gt=0,lt=1"`
	RollingWindow int     `json:"rolling_window" yaml:"rolling_window" envconfig:"ROLLING_WINDOW" validate:"gte=2"`
	Force         bool    `json:"force" yaml:"force" envconfig:"FORCE"`
}

// SignalConfig controls the rolling z-score.
type SignalConfig struct {
	Window int `json:"window" yaml:"window" envconfig:"WINDOW" validate:"gte=20"`
}

// RulesConfig mirrors position.Rules.
type RulesConfig struct {
	EntryThreshold    float64 `json:"entry_threshold" yaml:"entry_threshold" envconfig:"ENTRY_THRESHOLD" validate:"gt=0"`
	ExitThreshold     float64 `json:"exit_threshold" yaml:"exit_threshold" envconfig:"EXIT_THRESHOLD" validate:"gte=0,ltfield=EntryThreshold"`
	StopLossThreshold float64 `json:"stop_loss_threshold" yaml:"stop_loss_threshold" envconfig:"STOP_LOSS_THRESHOLD" validate:"gtfield=EntryThreshold"`
	MaxHoldingDays    int     `json:"max_holding_days" yaml:"max_holding_days" envconfig:"MAX_HOLDING_DAYS" validate:"gt=0"`
	ExitRule          string  `json:"exit_rule" yaml:"exit_rule" envconfig:"EXIT_RULE" validate:"omitempty,oneof=cross band"`
	ExitEpsilon       float64 `json:"exit_epsilon" yaml:"exit_epsilon" envconfig:"EXIT_EPSILON" validate:"gte=0"`
}

// BacktestConfig holds the money side of the simulation.
type BacktestConfig struct {
	CostBpsPerLeg  float64 `json:"cost_bps_per_leg" yaml:"cost_bps_per_leg" envconfig:"COST_BPS_PER_LEG" validate:"gte=0"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital" envconfig:"INITIAL_CAPITAL" validate:"gt=0"`
	LegFraction    float64 `json:"leg_fraction" yaml:"leg_fraction" envconfig:"LEG_FRACTION" validate:"gt=0"`
}

// SweepConfig is the parameter grid for the sweep command. Empty lists fall
// back to the single value in Rules/Signal.
type SweepConfig struct {
	EntryThresholds []float64 `json:"entry_thresholds,omitempty" yaml:"entry_thresholds,omitempty" envconfig:"ENTRY_THRESHOLDS" validate:"dive,gt=0"`
	ExitThresholds  []float64 `json:"exit_thresholds,omitempty" yaml:"exit_thresholds,omitempty" envconfig:"EXIT_THRESHOLDS" validate:"dive,gte=0"`
	Windows         []int     `json:"windows,omitempty" yaml:"windows,omitempty" envconfig:"WINDOWS" validate:"dive,gte=20"`
	Workers         int       `json:"workers" yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
	Objective       string    `json:"objective" yaml:"objective" envconfig:"OBJECTIVE" validate:"omitempty,oneof=sharpe sortino calmar total_return"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" envconfig:"ENABLED"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty" envconfig:"DB_PATH" validate:"required_if=Enabled true"`
}

// LogConfig selects the zerolog level.
type LogConfig struct {
	Level string `json:"level" yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=trace debug info warn error"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	r := position.DefaultRules()
	return &Config{
		Data: DataConfig{
			TrainFraction: 0.7,
		},
		Estimation: EstimationConfig{
			MaxLag:        1,
			Significance:  0.05,
			RollingWindow: coint.DefaultRollingWindow,
		},
		Signal: SignalConfig{Window: backtest.DefaultWindow},
		Rules: RulesConfig{
			EntryThreshold:    r.EntryThreshold,
			ExitThreshold:     r.ExitThreshold,
			StopLossThreshold: r.StopLossThreshold,
			MaxHoldingDays:    r.MaxHoldingDays,
			ExitRule:          string(r.ExitRule),
		},
		Backtest: BacktestConfig{
			CostBpsPerLeg:  backtest.DefaultCostBpsPerLeg,
			InitialCapital: backtest.DefaultInitialCapital,
			LegFraction:    backtest.DefaultLegFraction,
		},
		Sweep: SweepConfig{
			Objective: "sharpe",
		},
		Journal: JournalConfig{
			DBPath: "./pairtrader.db",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the effective configuration: defaults, then the file at path
// (if non-empty), then PAIRS_* environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, &errs.InvalidConfigurationError{Field: "env", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON) on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return &errs.InvalidConfigurationError{
				Field:  filepath.Base(path),
				Reason: fmt.Sprintf("parse (tried YAML and JSON): %v", err),
			}
		}
	}
	return nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("date", isDate); err != nil {
		panic(err)
	}
	return v
}

func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(market.DateLayout, fl.Field().String())
	return err == nil
}

// Validate checks field constraints, then the cross-field rules the
// engine enforces. The first failure is returned as an
// InvalidConfigurationError naming the dotted yaml path.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			return errs.InvalidConfig(field, "failed %q (param %q), got %v", fe.Tag(), fe.Param(), fe.Value())
		}
		return &errs.InvalidConfigurationError{Field: "config", Reason: err.Error()}
	}
	if err := c.PositionRules().Validate(); err != nil {
		return err
	}
	return c.EngineConfig(time.Time{}).Validate()
}

// PositionRules converts the rules section.
func (c *Config) PositionRules() position.Rules {
	return position.Rules{
		EntryThreshold:    c.Rules.EntryThreshold,
		ExitThreshold:     c.Rules.ExitThreshold,
		StopLossThreshold: c.Rules.StopLossThreshold,
		MaxHoldingDays:    c.Rules.MaxHoldingDays,
		ExitRule:          position.ExitRule(c.Rules.ExitRule),
		ExitEpsilon:       c.Rules.ExitEpsilon,
	}
}

// EngineConfig builds the backtest configuration for the given split.
func (c *Config) EngineConfig(split time.Time) backtest.Config {
	return backtest.Config{
		Window:         c.Signal.Window,
		Rules:          c.PositionRules(),
		CostBpsPerLeg:  c.Backtest.CostBpsPerLeg,
		Split:          split,
		InitialCapital: c.Backtest.InitialCapital,
		LegFraction:    c.Backtest.LegFraction,
	}
}

// EstimateOptions builds the cointegration options.
func (c *Config) EstimateOptions() coint.Options {
	return coint.Options{MaxLag: c.Estimation.MaxLag, Significance: c.Estimation.Significance}
}

// PipelineConfig builds the research pipeline settings, resolving the
// split against pair.
func (c *Config) PipelineConfig(pair market.Pair) (pipeline.Config, error) {
	split, err := c.Split(pair)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Backtest:      c.EngineConfig(split),
		TrainFraction: c.Data.TrainFraction,
		Estimation:    c.EstimateOptions(),
		RollingWindow: c.Estimation.RollingWindow,
		Force:         c.Estimation.Force,
	}, nil
}

// SweepGrid returns the configured parameter grid.
func (c *Config) SweepGrid() sweep.Grid {
	return sweep.Grid{
		Windows: c.Sweep.Windows,
		Entries: c.Sweep.EntryThresholds,
		Exits:   c.Sweep.ExitThresholds,
	}
}

// SweepOptions returns the worker and objective settings.
func (c *Config) SweepOptions() []sweep.Option {
	opts := []sweep.Option{sweep.WithWorkers(c.Sweep.Workers)}
	if c.Sweep.Objective != "" {
		opts = append(opts, sweep.WithObjective(sweep.Objective(c.Sweep.Objective)))
	}
	return opts
}

// Split resolves the train/test split for pair: SplitDate when set,
// otherwise the TrainFraction row.
func (c *Config) Split(pair market.Pair) (time.Time, error) {
	if c.Data.SplitDate != "" {
		t, err := time.Parse(market.DateLayout, c.Data.SplitDate)
		if err != nil {
			return time.Time{}, errs.InvalidConfig("data.split_date", "%v", err)
		}
		if err := pair.CheckSplit(t); err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	return pair.SplitDate(c.Data.TrainFraction)
}

// LoadPair reads the configured price files.
func (c *Config) LoadPair() (market.Pair, error) {
	d := c.Data
	if d.PairFile != "" {
		p, err := market.LoadPairCSV(d.PairFile)
		if err != nil {
			return market.Pair{}, err
		}
		if d.SymbolA != "" {
			p.A.Symbol = d.SymbolA
		}
		if d.SymbolB != "" {
			p.B.Symbol = d.SymbolB
		}
		return p, nil
	}
	if d.SeriesA == "" || d.SeriesB == "" {
		return market.Pair{}, errs.InvalidConfig("data", "pair_file or both series_a and series_b are required")
	}
	a, err := market.LoadSeriesCSV(d.SeriesA, symbolOr(d.SymbolA, d.SeriesA))
	if err != nil {
		return market.Pair{}, err
	}
	b, err := market.LoadSeriesCSV(d.SeriesB, symbolOr(d.SymbolB, d.SeriesB))
	if err != nil {
		return market.Pair{}, err
	}
	return market.NewPair(a, b)
}

func symbolOr(sym, path string) string {
	if sym != "" {
		return sym
	}
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}
