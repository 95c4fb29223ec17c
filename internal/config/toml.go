// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/qc7/internal/stats"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Data     DataConfig     `toml:"data"`
	Analysis AnalysisConfig `toml:"analysis"`
	Keywords KeywordsConfig `toml:"keywords"`
	Report   ReportConfig   `toml:"report"`
	Log      LogConfig      `toml:"log"`
}

// DataConfig maps storage settings.
type DataConfig struct {
	DB        *string `toml:"db"`
	Dataset   *string `toml:"dataset"`
	Checklist *string `toml:"checklist"`
}

// AnalysisConfig maps analysis parameters.
type AnalysisConfig struct {
	Bins              *int     `toml:"histogram-bins"`
	Sigma             *float64 `toml:"sigma"`
	VitalFewThreshold *float64 `toml:"vital-few-threshold"`
}

// KeywordsConfig overrides the 4M keyword lists. A nil list keeps the default.
type KeywordsConfig struct {
	Man      []string `toml:"man"`
	Machine  []string `toml:"machine"`
	Material []string `toml:"material"`
	Method   []string `toml:"method"`
}

// ReportConfig maps report metadata defaults.
type ReportConfig struct {
	Company    *string  `toml:"company"`
	Department *string  `toml:"department"`
	Presenter  *string  `toml:"presenter"`
	Period     *string  `toml:"period"`
	Target     *string  `toml:"target"`
	Sections   []string `toml:"sections"`
}

// LogConfig maps logger settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Rules returns the default keyword rules with any configured lists applied.
func (k KeywordsConfig) Rules() stats.Rules {
	return stats.DefaultRules().Override(stats.Rules{
		Man:      k.Man,
		Machine:  k.Machine,
		Material: k.Material,
		Method:   k.Method,
	})
}
