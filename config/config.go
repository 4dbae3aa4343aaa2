// Package config loads the quorum YAML configuration.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/storage/history"
)

const (
	// EnvConfigPath names the config file when no path is given explicitly.
	EnvConfigPath = "QUORUM_CONFIG"

	defaultAddr     = ":8080"
	defaultLogLevel = "info"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the fully resolved configuration.
type Config struct {
	LogLevel string
	Addr     string
	History  history.Config
	Engine   domain.WeightConfig
}

// ConfigTmp is the YAML shape. Nil pointers and empty maps keep the default.
type ConfigTmp struct {
	LogLevel string     `yaml:"log_level,omitempty"`
	Server   ServerTmp  `yaml:"server,omitempty"`
	History  HistoryTmp `yaml:"history,omitempty"`
	Engine   EngineTmp  `yaml:"engine,omitempty"`
}

type ServerTmp struct {
	Addr string `yaml:"addr,omitempty"`
}

type HistoryTmp struct {
	Backend string `yaml:"backend,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
	Limit   int    `yaml:"limit,omitempty"`
}

type EngineTmp struct {
	Weights             map[string]float64       `yaml:"weights,omitempty"`
	RegimeMultipliers   map[string]float64       `yaml:"regime_multipliers,omitempty"`
	VetoThreshold       *int                     `yaml:"veto_threshold,omitempty"`
	Thresholds          ThresholdsTmp      `yaml:"thresholds,omitempty"`
	Hold                TierTmp            `yaml:"hold,omitempty"`
	Normal              TierTmp            `yaml:"normal,omitempty"`
	Strong              TierTmp            `yaml:"strong,omitempty"`
	MaxSize             *float64           `yaml:"max_size,omitempty"`
	MaxConfidence       *float64           `yaml:"max_confidence,omitempty"`
	VetoConfidence      *float64           `yaml:"veto_confidence,omitempty"`
	CoherenceDampening  *float64           `yaml:"coherence_dampening,omitempty"`
	UncertaintyDiscount *float64           `yaml:"uncertainty_discount,omitempty"`
	StopLossBase        *float64           `yaml:"stop_loss_base,omitempty"`
	RewardRisk          *float64           `yaml:"reward_risk,omitempty"`
}

// ThresholdsTmp holds action thresholds. Each key is merged onto the default on its own.
type ThresholdsTmp struct {
	StrongBuy  *float64 `yaml:"strong_buy,omitempty"`
	Buy        *float64 `yaml:"buy,omitempty"`
	Sell       *float64 `yaml:"sell,omitempty"`
	StrongSell *float64 `yaml:"strong_sell,omitempty"`
}

// TierTmp holds one tier profile with per-bound overrides.
type TierTmp struct {
	Size       RangeTmp `yaml:"size,omitempty"`
	Confidence RangeTmp `yaml:"confidence,omitempty"`
}

// RangeTmp holds optional range bounds.
type RangeTmp struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

func (t ThresholdsTmp) apply(dst *domain.ActionThresholds) {
	setFloat(&dst.StrongBuy, t.StrongBuy)
	setFloat(&dst.Buy, t.Buy)
	setFloat(&dst.Sell, t.Sell)
	setFloat(&dst.StrongSell, t.StrongSell)
}

func (t TierTmp) apply(dst *domain.TierProfile) {
	t.Size.apply(&dst.Size)
	t.Confidence.apply(&dst.Confidence)
}

func (r RangeTmp) apply(dst *domain.Range) {
	setFloat(&dst.Min, r.Min)
	setFloat(&dst.Max, r.Max)
}

func thresholdsTmp(t domain.ActionThresholds) ThresholdsTmp {
	return ThresholdsTmp{StrongBuy: &t.StrongBuy, Buy: &t.Buy, Sell: &t.Sell, StrongSell: &t.StrongSell}
}

func tierTmp(p domain.TierProfile) TierTmp {
	return TierTmp{
		Size:       RangeTmp{Min: &p.Size.Min, Max: &p.Size.Max},
		Confidence: RangeTmp{Min: &p.Confidence.Min, Max: &p.Confidence.Max},
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: defaultLogLevel,
		Addr:     defaultAddr,
		History: history.Config{
			Backend: history.BackendMemory,
			Limit:   history.DefaultLimit,
		},
		Engine: domain.DefaultWeightConfig(),
	}
}

// Load reads path, falling back to $QUORUM_CONFIG and then to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	return Parse(f)
}

// Parse decodes YAML and fills absent keys with defaults.
func Parse(data []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	cfg, err := tmp.resolve()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c ConfigTmp) resolve() (Config, error) {
	cfg := Default()

	if c.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(c.LogLevel)
	}
	if c.Server.Addr != "" {
		cfg.Addr = c.Server.Addr
	}
	if c.History.Backend != "" {
		cfg.History.Backend = strings.ToLower(c.History.Backend)
	}
	cfg.History.Dir = c.History.Dir
	if c.History.Limit != 0 {
		cfg.History.Limit = c.History.Limit
	}

	e := &cfg.Engine
	for k, v := range c.Engine.Weights {
		id := domain.PerspectiveID(k)
		if !id.Valid() {
			return Config{}, errors.Wrapf(ErrInvalid, "unknown perspective %q in engine.weights", k)
		}
		e.Weights[id] = v
	}
	for k, v := range c.Engine.RegimeMultipliers {
		r := domain.CooperationRegime(strings.ToUpper(k))
		if !r.Valid() {
			return Config{}, errors.Wrapf(ErrInvalid, "unknown cooperation regime %q in engine.regime_multipliers", k)
		}
		e.RegimeMultipliers[r] = v
	}

	if c.Engine.VetoThreshold != nil {
		e.VetoThreshold = *c.Engine.VetoThreshold
	}
	c.Engine.Thresholds.apply(&e.Thresholds)
	c.Engine.Hold.apply(&e.Hold)
	c.Engine.Normal.apply(&e.Normal)
	c.Engine.Strong.apply(&e.Strong)

	setFloat(&e.MaxSize, c.Engine.MaxSize)
	setFloat(&e.MaxConfidence, c.Engine.MaxConfidence)
	setFloat(&e.VetoConfidence, c.Engine.VetoConfidence)
	setFloat(&e.CoherenceDampening, c.Engine.CoherenceDampening)
	setFloat(&e.UncertaintyDiscount, c.Engine.UncertaintyDiscount)
	setFloat(&e.StopLossBase, c.Engine.StopLossBase)
	setFloat(&e.RewardRisk, c.Engine.RewardRisk)

	return cfg, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalid, "log_level: %v", err)
	}
	if c.Addr == "" {
		return errors.Wrap(ErrInvalid, "server.addr is empty")
	}

	switch c.History.Backend {
	case history.BackendMemory, history.BackendJSON, history.BackendWAL:
	default:
		return errors.Wrapf(ErrInvalid, "history.backend must be one of memory, json, wal, got %q", c.History.Backend)
	}
	if c.History.Limit <= 0 {
		return errors.Wrapf(ErrInvalid, "history.limit must be positive, got %d", c.History.Limit)
	}

	if err := c.Engine.Validate(); err != nil {
		return errors.Wrapf(ErrInvalid, "engine: %v", err)
	}

	return nil
}

// Tmp converts the config back into its YAML shape with every key present.
func (c Config) Tmp() ConfigTmp {
	e := c.Engine

	weights := make(map[string]float64, len(e.Weights))
	for k, v := range e.Weights {
		weights[string(k)] = v
	}
	multipliers := make(map[string]float64, len(e.RegimeMultipliers))
	for k, v := range e.RegimeMultipliers {
		multipliers[string(k)] = v
	}

	return ConfigTmp{
		LogLevel: c.LogLevel,
		Server:   ServerTmp{Addr: c.Addr},
		History: HistoryTmp{
			Backend: c.History.Backend,
			Dir:     c.History.Dir,
			Limit:   c.History.Limit,
		},
		Engine: EngineTmp{
			Weights:             weights,
			RegimeMultipliers:   multipliers,
			VetoThreshold:       &e.VetoThreshold,
			Thresholds:          thresholdsTmp(e.Thresholds),
			Hold:                tierTmp(e.Hold),
			Normal:              tierTmp(e.Normal),
			Strong:              tierTmp(e.Strong),
			MaxSize:             &e.MaxSize,
			MaxConfidence:       &e.MaxConfidence,
			VetoConfidence:      &e.VetoConfidence,
			CoherenceDampening:  &e.CoherenceDampening,
			UncertaintyDiscount: &e.UncertaintyDiscount,
			StopLossBase:        &e.StopLossBase,
			RewardRisk:          &e.RewardRisk,
		},
	}
}

// Save writes the config as YAML.
func Save(c Config, path string) error {
	data, err := yaml.Marshal(c.Tmp())
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// NewLogger builds a production logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalid, "log_level: %v", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	return zc.Build()
}
