package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/martinhoefling/goxkcdpwgen/xkcdpwgen"
	"github.com/pelletier/go-toml"
)

const defaultConfigFileName = "ckbstratum.toml"

// poolFileConfig mirrors pool.* in the TOML file.
type poolFileConfig struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// nodeFileConfig mirrors node.*.
type nodeFileConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Coinbase string `toml:"coinbase"`
	ZMQAddr  string `toml:"zmq_addr"`
}

// localFileConfig mirrors local.*: the proxy's own listen addresses.
type localFileConfig struct {
	Host           string  `toml:"host"`
	Port           string  `toml:"port"`
	StatsPort      string  `toml:"stats_port"`
	AdminToken     string  `toml:"admin_token"`
	AcceptPerSec   float64 `toml:"accept_per_second"`
	AcceptBurst    int     `toml:"accept_burst"`
	DiscordWebhook string  `toml:"discord_webhook"`
}

// vardiffFileConfig mirrors vardiff.*.
type vardiffFileConfig struct {
	TargetShareSec  *float64 `toml:"target_share_sec"`
	RetargetSec     *float64 `toml:"retarget_sec"`
	VariancePercent *float64 `toml:"variance_percent"`
	MinDiff         *float64 `toml:"min_diff"`
	MaxDiff         *float64 `toml:"max_diff"`
	InitialDiff     *float64 `toml:"initial_diff"`
}

type fileConfig struct {
	Mode    string            `toml:"mode"`
	Pool    poolFileConfig    `toml:"pool"`
	Node    nodeFileConfig    `toml:"node"`
	Local   localFileConfig   `toml:"local"`
	Vardiff vardiffFileConfig `toml:"vardiff"`
}

// Config is the fully-resolved runtime configuration, defaults applied.
type Config struct {
	Mode string // "pool" | "solo"

	PoolHost string
	PoolPort string
	PoolUser string
	PoolPass string

	NodeHost     string
	NodePort     string
	NodeCoinbase string
	NodeZMQAddr  string

	LocalHost       string
	LocalPort       string
	LocalStatsPort  string
	AdminToken      string
	AcceptPerSecond float64
	AcceptBurst     int
	DiscordWebhook  string

	Vardiff VardiffConfig
}

func defaultConfig() Config {
	return Config{
		Mode:            modePool,
		PoolPort:        "3333",
		NodePort:        "8114",
		LocalHost:       "0.0.0.0",
		LocalPort:       "3333",
		LocalStatsPort:  "3334",
		AcceptPerSecond: 50,
		AcceptBurst:     100,
		Vardiff:         defaultVardiffConfig(),
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "ckbstratum", defaultConfigFileName)
	}
	return defaultConfigFileName
}

// loadConfig reads path (or the default path when empty), applying file
// values over the built-in defaults. A missing file is not an error: the
// defaults plus a freshly generated admin token are used, and the resolved
// config is written back so the operator has something to edit.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = defaultConfigPath()
	}

	fc, existed, err := loadTOMLConfigFile(path)
	if err != nil {
		return cfg, err
	}
	if existed {
		applyFileConfig(&cfg, *fc)
	}

	needsRewrite := !existed
	if cfg.AdminToken == "" {
		cfg.AdminToken = generateAdminToken()
		needsRewrite = true
	}

	if needsRewrite {
		if err := writeConfigFile(path, cfg); err != nil {
			logger.Warn("write default config failed", "path", path, "error", err)
		} else {
			logger.Info("wrote config file", "path", path)
		}
	}

	return cfg, validateConfig(cfg)
}

func loadTOMLConfigFile(path string) (*fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, true, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Mode != "" {
		cfg.Mode = fc.Mode
	}
	if fc.Pool.Host != "" {
		cfg.PoolHost = fc.Pool.Host
	}
	if fc.Pool.Port != "" {
		cfg.PoolPort = fc.Pool.Port
	}
	if fc.Pool.User != "" {
		cfg.PoolUser = fc.Pool.User
	}
	if fc.Pool.Pass != "" {
		cfg.PoolPass = fc.Pool.Pass
	}

	if fc.Node.Host != "" {
		cfg.NodeHost = fc.Node.Host
	}
	if fc.Node.Port != "" {
		cfg.NodePort = fc.Node.Port
	}
	if fc.Node.Coinbase != "" {
		cfg.NodeCoinbase = fc.Node.Coinbase
	}
	if fc.Node.ZMQAddr != "" {
		cfg.NodeZMQAddr = fc.Node.ZMQAddr
	}

	if fc.Local.Host != "" {
		cfg.LocalHost = fc.Local.Host
	}
	if fc.Local.Port != "" {
		cfg.LocalPort = fc.Local.Port
	}
	if fc.Local.StatsPort != "" {
		cfg.LocalStatsPort = fc.Local.StatsPort
	}
	if fc.Local.AdminToken != "" {
		cfg.AdminToken = fc.Local.AdminToken
	}
	if fc.Local.AcceptPerSec > 0 {
		cfg.AcceptPerSecond = fc.Local.AcceptPerSec
	}
	if fc.Local.AcceptBurst > 0 {
		cfg.AcceptBurst = fc.Local.AcceptBurst
	}
	if fc.Local.DiscordWebhook != "" {
		cfg.DiscordWebhook = fc.Local.DiscordWebhook
	}

	v := &cfg.Vardiff
	if fc.Vardiff.TargetShareSec != nil {
		v.TargetShareSec = *fc.Vardiff.TargetShareSec
	}
	if fc.Vardiff.RetargetSec != nil {
		v.RetargetSec = *fc.Vardiff.RetargetSec
	}
	if fc.Vardiff.VariancePercent != nil {
		v.VariancePercent = *fc.Vardiff.VariancePercent
	}
	if fc.Vardiff.MinDiff != nil {
		v.MinDiff = *fc.Vardiff.MinDiff
	}
	if fc.Vardiff.MaxDiff != nil {
		v.MaxDiff = *fc.Vardiff.MaxDiff
	}
	if fc.Vardiff.InitialDiff != nil {
		v.InitialDiff = *fc.Vardiff.InitialDiff
	}
}

func writeConfigFile(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	fc := fileConfig{
		Mode: cfg.Mode,
		Pool: poolFileConfig{Host: cfg.PoolHost, Port: cfg.PoolPort, User: cfg.PoolUser, Pass: cfg.PoolPass},
		Node: nodeFileConfig{Host: cfg.NodeHost, Port: cfg.NodePort, Coinbase: cfg.NodeCoinbase, ZMQAddr: cfg.NodeZMQAddr},
		Local: localFileConfig{
			Host: cfg.LocalHost, Port: cfg.LocalPort, StatsPort: cfg.LocalStatsPort,
			AdminToken: cfg.AdminToken, AcceptPerSec: cfg.AcceptPerSecond, AcceptBurst: cfg.AcceptBurst,
			DiscordWebhook: cfg.DiscordWebhook,
		},
		Vardiff: vardiffFileConfig{
			TargetShareSec:  &cfg.Vardiff.TargetShareSec,
			RetargetSec:     &cfg.Vardiff.RetargetSec,
			VariancePercent: &cfg.Vardiff.VariancePercent,
			MinDiff:         &cfg.Vardiff.MinDiff,
			MaxDiff:         &cfg.Vardiff.MaxDiff,
			InitialDiff:     &cfg.Vardiff.InitialDiff,
		},
	}
	data, err := toml.Marshal(fc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func validateConfig(cfg Config) error {
	switch cfg.Mode {
	case modePool:
		if cfg.PoolHost == "" {
			return errors.New("pool mode requires pool.host")
		}
	case modeSolo:
		if cfg.NodeHost == "" {
			return errors.New("solo mode requires node.host")
		}
	default:
		return fmt.Errorf("unrecognized mode %q (want %q or %q)", cfg.Mode, modePool, modeSolo)
	}
	if cfg.Vardiff.MinDiff <= 0 || cfg.Vardiff.MaxDiff <= cfg.Vardiff.MinDiff {
		return fmt.Errorf("invalid vardiff bounds: min=%v max=%v", cfg.Vardiff.MinDiff, cfg.Vardiff.MaxDiff)
	}
	return nil
}

// generateAdminToken produces a memorable default bearer token for the
// /admin/reload route on first run, instead of leaving it empty and
// disabling the route entirely.
func generateAdminToken() string {
	gen := xkcdpwgen.NewGenerator()
	gen.SetNumWords(4)
	gen.SetCapitalize(false)
	gen.SetDelimiter("-")
	return strings.TrimSpace(gen.GeneratePasswordString())
}
