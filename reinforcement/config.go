package reinforcement

import (
	"context"
	"path/filepath"
	"time"

	"parking/parking_lot"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the config document envelope: a kind selector and its definition.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig encodes algorithmic and training parameters outside of code.
// Field names double as yaml keys in lowercase, since viper lowercases every key it reads.
type TrainingConfig struct {
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `mapstructure:"hyperParams"`
	// Algorithm is an alg selector.
	Algorithm map[string]string `mapstructure:"algorithm"`
	// TrainingDeadline is a fixed deadline or duration describing when to terminate training.
	TrainingDeadline map[string]string `mapstructure:"trainingDeadline"`
	// Episodes is the number of training episodes.
	Episodes int `mapstructure:"episodes"`
	// LogEvery is the episode period of progress logs.
	LogEvery int `mapstructure:"logEvery"`
	// Seed seeds exploration; zero selects a time-based seed.
	Seed int64 `mapstructure:"seed"`
	// Environment overrides the simulator constants. Unset fields keep their defaults.
	Environment *parking_lot.EnvConfig `mapstructure:"-" yaml:"-"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

const (
	DEFAULT_EPISODES  = 10000
	DEFAULT_LOG_EVERY = 500
)

// DefaultTrainingConfig is used when no config file is given.
func DefaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		Algorithm:   map[string]string{"name": "q-learning"},
		Episodes:    DEFAULT_EPISODES,
		LogEvery:    DEFAULT_LOG_EVERY,
		Environment: parking_lot.DefaultEnvConfig(),
	}
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// SetHyperParam overrides or appends a hyperparameter.
func (cfg *TrainingConfig) SetHyperParam(param string, val float64) {
	for i := range cfg.HyperParams {
		if cfg.HyperParams[i].Key == param {
			cfg.HyperParams[i].Val = val
			return
		}
	}
	cfg.HyperParams = append(cfg.HyperParams, HyperParameter{Key: param, Val: val})
}

// EnvConfig returns the simulator constants, falling back to the defaults.
func (cfg *TrainingConfig) EnvConfig() *parking_lot.EnvConfig {
	if cfg.Environment == nil {
		return parking_lot.DefaultEnvConfig()
	}
	return cfg.Environment
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		if duration, err := time.ParseDuration(val); err != nil {
			return nil, nil, err
		} else {
			innerCtx, cancel := context.WithTimeout(ctx, duration)
			return innerCtx, cancel, nil
		}
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a TrainingConfig from a kind/def yaml document. The def body is
// re-marshalled through yaml so that nested structures (hyperparams, environment)
// decode with yaml semantics rather than mapstructure's.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := DefaultTrainingConfig()
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	// The environment block overlays the defaults field by field.
	envDef := struct {
		Environment yaml.Node
	}{}
	if err = yaml.Unmarshal(spec, &envDef); err != nil {
		return nil, err
	}
	if !envDef.Environment.IsZero() {
		if err = envDef.Environment.Decode(innerConfig.Environment); err != nil {
			return nil, err
		}
	}

	if innerConfig.Episodes <= 0 {
		innerConfig.Episodes = DEFAULT_EPISODES
	}
	if innerConfig.LogEvery <= 0 {
		innerConfig.LogEvery = DEFAULT_LOG_EVERY
	}

	return innerConfig, nil
}
