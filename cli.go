package main

import (
	"os"

	flags "github.com/jessevdk/go-flags"
)

// cliOptions are command-line overrides layered on top of the TOML config
// file. Any flag left at its zero value does not override the file.
type cliOptions struct {
	ConfigFile string `long:"configfile" description:"Path to the TOML config file"`
	Mode       string `long:"mode" description:"Run mode: pool or solo"`

	PoolHost string `long:"poolhost" description:"Upstream pool hostname"`
	PoolPort string `long:"poolport" description:"Upstream pool port"`
	PoolUser string `long:"pooluser" description:"Upstream pool username"`
	PoolPass string `long:"poolpass" default-mask:"-" description:"Upstream pool password"`

	NodeHost string `long:"nodehost" description:"CKB node RPC hostname"`
	NodePort string `long:"nodeport" description:"CKB node RPC port"`

	LocalPort      string `long:"listen" description:"Stratum listen port"`
	LocalStatsPort string `long:"statsport" description:"Stats HTTP listen port"`

	Debug   bool `long:"debug" description:"Enable debug logging"`
	Verbose bool `long:"verbose" description:"Enable verbose net-level logging"`
}

func parseCLI(args []string) (cliOptions, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	_, err := parser.ParseArgs(args)
	return opts, err
}

// applyCLIOverrides layers non-empty CLI flags over a loaded Config.
func applyCLIOverrides(cfg *Config, opts cliOptions) {
	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}
	if opts.PoolHost != "" {
		cfg.PoolHost = opts.PoolHost
	}
	if opts.PoolPort != "" {
		cfg.PoolPort = opts.PoolPort
	}
	if opts.PoolUser != "" {
		cfg.PoolUser = opts.PoolUser
	}
	if opts.PoolPass != "" {
		cfg.PoolPass = opts.PoolPass
	}
	if opts.NodeHost != "" {
		cfg.NodeHost = opts.NodeHost
	}
	if opts.NodePort != "" {
		cfg.NodePort = opts.NodePort
	}
	if opts.LocalPort != "" {
		cfg.LocalPort = opts.LocalPort
	}
	if opts.LocalStatsPort != "" {
		cfg.LocalStatsPort = opts.LocalStatsPort
	}
	if opts.Debug {
		setLogLevel(logLevelDebug)
	}
	if opts.Verbose {
		netDebugLogging.Store(true)
	}
}

// exitOnHelp lets the standard go-flags ErrHelp case exit 0 without the
// caller needing to special-case it.
func exitOnHelp(err error) {
	if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
		os.Exit(0)
	}
}
