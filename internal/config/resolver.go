// Package config resolves index build/search parameters from a config
// file, environment variables, and CLI flags, in that ascending order of
// precedence, the same layering cortex's own config package used for its
// provider settings (spec §6 "tunable parameters", SPEC_FULL ambient
// stack).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceProfile ValueSource = "profile"
	SourceDefault ValueSource = "default"
)

// ResolvedValue records not just a value but where it came from, so a
// harness can report "efSearch=300 (cli:--ef-search)" in its run log.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-flag overrides a caller wants layered on
// top of file and environment values. Empty strings mean "not set on the
// command line".
type ResolveOptions struct {
	ConfigPath string

	CLIM              string
	CLIEfConstruction string
	CLIEfSearch       string
	CLIAlpha          string
	CLISeed           string
	CLIWorkers        string
	CLIProfile        string
}

// ResolvedConfig is the fully layered result: every tunable the hnsw
// package exposes via SetParameters/SetAlpha/SetSeed/SetWorkers, plus the
// dataset profile name used for auto-tuning (SPEC_FULL §"Domain Stack").
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	M              ResolvedValue `json:"m"`
	EfConstruction ResolvedValue `json:"ef_construction"`
	EfSearch       ResolvedValue `json:"ef_search"`
	Alpha          ResolvedValue `json:"alpha"`
	Seed           ResolvedValue `json:"seed"`
	Workers        ResolvedValue `json:"workers"`
	Profile        ResolvedValue `json:"profile"`
}

type fileConfig struct {
	M              int     `yaml:"m"`
	EfConstruction int     `yaml:"ef_construction"`
	EfSearch       int     `yaml:"ef_search"`
	Alpha          float64 `yaml:"alpha"`
	Seed           int64   `yaml:"seed"`
	Workers        int     `yaml:"workers"`
	Profile        string  `yaml:"profile"`
}

// DefaultConfigPath mirrors the home-directory dotfile convention cortex
// used for its own config.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hnswcore", "config.yaml")
}

// ResolveConfig layers file, environment, and CLI-flag values for every
// index tunable. Precedence (lowest to highest): built-in default,
// dataset profile (applied before file so an explicit file value always
// wins over a profile guess), config file, environment, CLI flag.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	profileName := strings.TrimSpace(opts.CLIProfile)
	if profileName == "" {
		profileName = strings.TrimSpace(os.Getenv("HNSWCORE_PROFILE"))
	}
	if prof, ok := lookupProfile(profileName); ok {
		applyInt(&out.M, prof.M, SourceProfile, profileName)
		applyInt(&out.EfConstruction, prof.EfConstruction, SourceProfile, profileName)
		applyInt(&out.EfSearch, prof.EfSearch, SourceProfile, profileName)
		applyFloat(&out.Alpha, prof.Alpha, SourceProfile, profileName)
		out.Profile = ResolvedValue{Value: profileName, Source: SourceProfile, From: "dataset profile table"}
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		if cfg.M != 0 {
			applyInt(&out.M, cfg.M, SourceConfig, path)
		}
		if cfg.EfConstruction != 0 {
			applyInt(&out.EfConstruction, cfg.EfConstruction, SourceConfig, path)
		}
		if cfg.EfSearch != 0 {
			applyInt(&out.EfSearch, cfg.EfSearch, SourceConfig, path)
		}
		if cfg.Alpha != 0 {
			applyFloat(&out.Alpha, cfg.Alpha, SourceConfig, path)
		}
		if cfg.Seed != 0 {
			applyInt64(&out.Seed, cfg.Seed, SourceConfig, path)
		}
		if cfg.Workers != 0 {
			applyInt(&out.Workers, cfg.Workers, SourceConfig, path)
		}
		if cfg.Profile != "" && profileName == "" {
			out.Profile = ResolvedValue{Value: cfg.Profile, Source: SourceConfig, From: path}
		}
	}

	applyEnvInt(&out.M, "HNSWCORE_M")
	applyEnvInt(&out.EfConstruction, "HNSWCORE_EF_CONSTRUCTION")
	applyEnvInt(&out.EfSearch, "HNSWCORE_EF_SEARCH")
	applyEnvFloat(&out.Alpha, "HNSWCORE_ALPHA")
	applyEnvInt64(&out.Seed, "HNSWCORE_SEED")
	applyEnvInt(&out.Workers, "HNSWCORE_WORKERS")

	applyCLIInt(&out.M, opts.CLIM, "--m")
	applyCLIInt(&out.EfConstruction, opts.CLIEfConstruction, "--ef-construction")
	applyCLIInt(&out.EfSearch, opts.CLIEfSearch, "--ef-search")
	applyCLIFloat(&out.Alpha, opts.CLIAlpha, "--alpha")
	applyCLIInt64(&out.Seed, opts.CLISeed, "--seed")
	applyCLIInt(&out.Workers, opts.CLIWorkers, "--workers")

	return out, nil
}

func loadFileConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func applyInt(dst *ResolvedValue, v int, source ValueSource, from string) {
	*dst = ResolvedValue{Value: strconv.Itoa(v), Source: source, From: from}
}

func applyInt64(dst *ResolvedValue, v int64, source ValueSource, from string) {
	*dst = ResolvedValue{Value: strconv.FormatInt(v, 10), Source: source, From: from}
}

func applyFloat(dst *ResolvedValue, v float64, source ValueSource, from string) {
	*dst = ResolvedValue{Value: strconv.FormatFloat(v, 'f', -1, 64), Source: source, From: from}
}

func applyEnvInt(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func applyEnvInt64(dst *ResolvedValue, envKey string) { applyEnvInt(dst, envKey) }

func applyEnvFloat(dst *ResolvedValue, envKey string) { applyEnvInt(dst, envKey) }

func applyCLIInt(dst *ResolvedValue, raw, flag string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: SourceCLI, From: flag}
}

func applyCLIInt64(dst *ResolvedValue, raw, flag string) { applyCLIInt(dst, raw, flag) }

func applyCLIFloat(dst *ResolvedValue, raw, flag string) { applyCLIInt(dst, raw, flag) }

// IntValue coerces a ResolvedValue to int using cast, falling back to def
// when the value is unset. cast.ToInt tolerates the string/float/number
// conversions env vars and YAML scalars can produce.
func (r ResolvedValue) IntValue(def int) int {
	if strings.TrimSpace(r.Value) == "" {
		return def
	}
	return cast.ToInt(r.Value)
}

// Int64Value mirrors IntValue for the Seed field.
func (r ResolvedValue) Int64Value(def int64) int64 {
	if strings.TrimSpace(r.Value) == "" {
		return def
	}
	return cast.ToInt64(r.Value)
}

// Float32Value mirrors IntValue for the Alpha field.
func (r ResolvedValue) Float32Value(def float32) float32 {
	if strings.TrimSpace(r.Value) == "" {
		return def
	}
	return float32(cast.ToFloat64(r.Value))
}
