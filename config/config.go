// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads rig deployment settings from a key = value file,
// with RIG_* environment variables taking precedence.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RIG_"

// Config holds the settings of a rig deployment. Amounts are decimal
// strings in the token's smallest unit.
type Config struct {
	DataDir  string `env:"DATADIR"`
	LogLevel string `env:"LOGLEVEL"`
	LogFile  string `env:"LOGFILE"`

	// Protocol fee source: a fixed address, or a domain whose
	// _rigfee TXT record names the address. At most one is set.
	ProtocolFee    string `env:"PROTOCOL_FEE"`
	FeeDomain      string `env:"FEE_DOMAIN"`
	DNSSECUpstream string `env:"DNSSEC_UPSTREAM"`

	// Seat rig parameters.
	EpochPeriod     uint64 `env:"EPOCH_PERIOD"`
	PriceMultiplier string `env:"PRICE_MULTIPLIER"`
	MinInitPrice    string `env:"MIN_INIT_PRICE"`
	InitialUps      string `env:"INITIAL_UPS"`
	TailUps         string `env:"TAIL_UPS"`
	HalvingAmount   string `env:"HALVING_AMOUNT"`
	Capacity        uint64 `env:"CAPACITY"`
	RandomnessFee   string `env:"RANDOMNESS_FEE"`
}

// DefaultDataDir returns the default data directory (~/.rig).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rig"
	}
	return filepath.Join(home, ".rig")
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        "info",
		EpochPeriod:     3600,
		PriceMultiplier: "2000000000000000000",
		MinInitPrice:    "1000000",
		InitialUps:      "4000000000000000000",
		TailUps:         "10000000000000000",
		HalvingAmount:   "10000000000000000000000000",
		Capacity:        1,
		RandomnessFee:   "0",
	}
}

// field binds a file key to a Config field.
type field struct {
	key string
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(key string, p func(*Config) *string) field {
	return field{
		key: key,
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func uintField(key string, p func(*Config) *uint64) field {
	return field{
		key: key,
		get: func(c *Config) string { return strconv.FormatUint(*p(c), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s = %q", ErrInvalidValue, key, v)
			}
			*p(c) = n
			return nil
		},
	}
}

// fields lists the file keys in the order SaveConfig writes them.
var fields = []field{
	stringField("datadir", func(c *Config) *string { return &c.DataDir }),
	stringField("loglevel", func(c *Config) *string { return &c.LogLevel }),
	stringField("logfile", func(c *Config) *string { return &c.LogFile }),
	stringField("protocolfee", func(c *Config) *string { return &c.ProtocolFee }),
	stringField("feedomain", func(c *Config) *string { return &c.FeeDomain }),
	stringField("dnssec", func(c *Config) *string { return &c.DNSSECUpstream }),
	uintField("epochperiod", func(c *Config) *uint64 { return &c.EpochPeriod }),
	stringField("multiplier", func(c *Config) *string { return &c.PriceMultiplier }),
	stringField("mininitprice", func(c *Config) *string { return &c.MinInitPrice }),
	stringField("initialups", func(c *Config) *string { return &c.InitialUps }),
	stringField("tailups", func(c *Config) *string { return &c.TailUps }),
	stringField("halvingamount", func(c *Config) *string { return &c.HalvingAmount }),
	uintField("capacity", func(c *Config) *uint64 { return &c.Capacity }),
	stringField("randomnessfee", func(c *Config) *string { return &c.RandomnessFee }),
}

func lookupField(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// LoadConfig reads the config file at path. Keys absent from the file keep
// their defaults; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d", err, lineNo)
		}
		fld, ok := lookupField(key)
		if !ok {
			continue
		}
		if err := fld.set(&cfg, value); err != nil {
			return cfg, fmt.Errorf("%w (line %d)", err, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits "key = value" on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Rig Configuration\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "%s = %s\n", f.key, f.get(&cfg))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any RIG_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: %w", ErrParseEnv, err)
	}
	return nil
}

// Load reads the config file in dataDir, falling back to defaults when it
// does not exist, then applies environment overrides and validates.
func Load(dataDir string) (Config, error) {
	cfg, err := LoadConfig(ConfigPath(dataDir))
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return cfg, err
	}
	if cfg.DataDir == DefaultDataDir() {
		cfg.DataDir = dataDir
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, ValidateConfig(cfg)
}

// ParseAmount parses a decimal amount. The empty string is zero.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %w", ErrInvalidValue, s, err)
	}
	return v, nil
}
