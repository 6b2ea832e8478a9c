package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	debugpkg "runtime/debug"
	"time"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			path := "panic.log"
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defer f.Close()
				ts := time.Now().UTC().Format(time.RFC3339)
				fmt.Fprintf(f, "[%s] panic: %v\n%s\n\n", ts, r, debugpkg.Stack())
			}
		}
	}()

	opts, err := parseCLI(os.Args[1:])
	if err != nil {
		exitOnHelp(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	applyCLIOverrides(&cfg, opts)

	configPath := opts.ConfigFile
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	configureFileLogging("ckbstratum.log", "ckbstratum.err.log", "ckbstratum.debug.log", true)
	defer logger.Stop()

	switch cfg.Mode {
	case modePool:
		runPoolMode(cfg, configPath)
	case modeSolo:
		runSoloMode(cfg, configPath)
	default:
		fatal("unrecognized mode", fmt.Errorf("%q", cfg.Mode))
	}
}

func runPoolMode(cfg Config, configPath string) {
	metrics := NewPoolMetrics()
	pool := NewPoolState()

	mgr := NewSessionManager(pool, nil, metrics, processEntropySeed(), cfg.Vardiff)
	mgr.SetConfigPath(configPath)
	upstream := NewUpstreamClient(cfg.PoolHost, cfg.PoolPort, cfg.PoolUser, cfg.PoolPass, pool, mgr)
	mgr.upstream = upstream
	mgr.SetAcceptLimiter(cfg.AcceptPerSecond, cfg.AcceptBurst)

	notifier, err := newBlockNotifier(cfg.DiscordWebhook)
	if err != nil {
		logger.Warn("discord notifier disabled", "error", err)
	}
	mgr.SetBlockNotifier(notifier)

	upstream.Start()

	listenAddr := net.JoinHostPort(cfg.LocalHost, cfg.LocalPort)
	if err := mgr.Listen(listenAddr); err != nil {
		fatal("stratum listen", err, "addr", listenAddr)
	}
	logger.Info("pool mode listening", "addr", listenAddr, "upstream", net.JoinHostPort(cfg.PoolHost, cfg.PoolPort))

	startStatsServer(mgr, cfg)

	if err := mgr.Serve(); err != nil {
		fatal("stratum accept loop ended", err)
	}
}

func runSoloMode(cfg Config, configPath string) {
	metrics := NewPoolMetrics()
	tmpl := NewTemplateState()

	rpcURL := "http://" + net.JoinHostPort(cfg.NodeHost, cfg.NodePort)
	node := NewNodeClient(rpcURL, metrics, tmpl)

	mgr := NewSoloSessionManager(tmpl, node.rpc, node, metrics, processEntropySeed(), cfg.Vardiff)
	mgr.SetConfigPath(configPath)
	mgr.attachSoloCallback()
	mgr.SetAcceptLimiter(cfg.AcceptPerSecond, cfg.AcceptBurst)

	notifier, err := newBlockNotifier(cfg.DiscordWebhook)
	if err != nil {
		logger.Warn("discord notifier disabled", "error", err)
	}
	mgr.SetBlockNotifier(notifier)

	if cfg.NodeCoinbase != "" {
		logger.Info("solo mode coinbase lock configured node-side", "coinbase", cfg.NodeCoinbase)
	}

	ensureSubmissionWorkerPool()
	node.Start()

	if cfg.NodeZMQAddr != "" {
		zmqHint := newZMQHintListener(cfg.NodeZMQAddr, node)
		zmqHint.Start()
	}

	listenAddr := net.JoinHostPort(cfg.LocalHost, cfg.LocalPort)
	if err := mgr.Listen(listenAddr); err != nil {
		fatal("stratum listen", err, "addr", listenAddr)
	}
	logger.Info("solo mode listening", "addr", listenAddr, "node", rpcURL)

	startStatsServer(mgr, cfg)

	if err := mgr.Serve(); err != nil {
		fatal("stratum accept loop ended", err)
	}
}

func startStatsServer(mgr *SessionManager, cfg Config) {
	stats := NewStatsServer(mgr, cfg.AdminToken)
	addr := net.JoinHostPort(cfg.LocalHost, cfg.LocalStatsPort)
	srv := &http.Server{Addr: addr, Handler: stats.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("stats server stopped", "error", err)
		}
	}()
	logger.Info("stats server listening", "addr", addr)
}

// processEntropySeed mixes the process start time into a seed for
// extranonce/session-id derivation; it need not be cryptographically secret,
// only distinct per process run.
func processEntropySeed() []byte {
	now := time.Now().UnixNano()
	return []byte{
		byte(now), byte(now >> 8), byte(now >> 16), byte(now >> 24),
		byte(now >> 32), byte(now >> 40), byte(now >> 48), byte(now >> 56),
	}
}
