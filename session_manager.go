package main

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remeh/sizedwaitgroup"
)

// broadcastFanoutWidth bounds how many miner writes run concurrently during a
// broadcast so a pool with thousands of connected miners doesn't spawn
// thousands of goroutines for a single mining.notify.
const broadcastFanoutWidth = 64

// fanout runs fn for every authorized, currently connected miner with at
// most broadcastFanoutWidth goroutines in flight at once.
func (mgr *SessionManager) fanout(fn func(mc *MinerConn)) {
	swg := sizedwaitgroup.New(broadcastFanoutWidth)
	for _, mc := range mgr.registry.Snapshot() {
		if !mc.authorized {
			continue
		}
		swg.Add()
		go func(mc *MinerConn) {
			defer swg.Done()
			fn(mc)
		}(mc)
	}
	swg.Wait()
}

const (
	modePool = "pool"
	modeSolo = "solo"
)

// SessionManager is the process-wide hub wiring the TCP listener, the miner
// registry, and whichever upstream (pool relay or local node) is active in
// the running mode. It is the one object every MinerConn holds a pointer
// back to.
type SessionManager struct {
	mode string

	pool     *PoolState
	tmpl     *TemplateState
	registry *MinerRegistry

	nodeRPC  *nodeRPCClient
	node     *NodeClient
	upstream *UpstreamClient

	vardiffMu   sync.RWMutex
	vardiffCfg  VardiffConfig
	entropySeed []byte
	metrics     *PoolMetrics

	limiter    *acceptRateLimiter
	notifier   *blockNotifier
	configPath string
	nextID     atomic.Uint32

	listener  net.Listener
	startedAt time.Time
}

// SetBlockNotifier attaches the (possibly nil) Discord block-found notifier
// built from config at startup.
func (mgr *SessionManager) SetBlockNotifier(n *blockNotifier) {
	mgr.notifier = n
}

// SetConfigPath records where /admin/reload should re-read config from.
func (mgr *SessionManager) SetConfigPath(path string) {
	mgr.configPath = path
}

// currentVardiffConfig is the synchronized read used by newMinerConn; plain
// field reads of vardiffCfg would race against ReloadVardiffConfig.
func (mgr *SessionManager) currentVardiffConfig() VardiffConfig {
	mgr.vardiffMu.RLock()
	defer mgr.vardiffMu.RUnlock()
	return mgr.vardiffCfg
}

// ReloadVardiffConfig swaps in new vardiff bounds for miners connecting from
// this point on; already-connected miners keep whatever controller state
// they started with; nothing about existing sessions is mutated under a
// reload.
func (mgr *SessionManager) ReloadVardiffConfig(cfg VardiffConfig) {
	mgr.vardiffMu.Lock()
	mgr.vardiffCfg = cfg
	mgr.vardiffMu.Unlock()
}

// NewSessionManager builds the shared hub for pool mode: no local node RPC
// client or NodeClient is wired since block templates and target/difficulty
// all come from the upstream pool.
func NewSessionManager(pool *PoolState, upstream *UpstreamClient, metrics *PoolMetrics, entropySeed []byte, vardiffCfg VardiffConfig) *SessionManager {
	mgr := &SessionManager{
		mode:        modePool,
		pool:        pool,
		registry:    NewMinerRegistry(),
		upstream:    upstream,
		vardiffCfg:  vardiffCfg,
		entropySeed: entropySeed,
		metrics:     metrics,
		limiter:     newAcceptRateLimiter(0, 0),
		startedAt:   time.Now(),
	}
	return mgr
}

// NewSoloSessionManager builds the shared hub for solo mode: the upstream
// pool relay is absent, and the node RPC client/NodeClient supply templates
// and the network target directly.
func NewSoloSessionManager(tmpl *TemplateState, nodeRPC *nodeRPCClient, node *NodeClient, metrics *PoolMetrics, entropySeed []byte, vardiffCfg VardiffConfig) *SessionManager {
	mgr := &SessionManager{
		mode:        modeSolo,
		tmpl:        tmpl,
		registry:    NewMinerRegistry(),
		nodeRPC:     nodeRPC,
		node:        node,
		vardiffCfg:  vardiffCfg,
		entropySeed: entropySeed,
		metrics:     metrics,
		limiter:     newAcceptRateLimiter(0, 0),
		startedAt:   time.Now(),
	}
	return mgr
}

// SetAcceptLimiter overrides the default accept-rate limiter (50 accepts per
// second, burst 100), typically from config at startup.
func (mgr *SessionManager) SetAcceptLimiter(perSecond float64, burst int) {
	mgr.limiter = newAcceptRateLimiter(perSecond, burst)
}

// Listen binds the stratum TCP port. A bind failure is fatal: two proxy
// processes can never safely share a port, so we refuse to start rather
// than silently fail to accept any miners.
func (mgr *SessionManager) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stratum listen %s: %w", addr, err)
	}
	mgr.listener = ln
	return nil
}

// Serve accepts connections until the listener is closed.
func (mgr *SessionManager) Serve() error {
	for {
		conn, err := mgr.listener.Accept()
		if err != nil {
			return err
		}
		if mgr.limiter != nil {
			ctx, cancel := defaultAcceptContext()
			err := mgr.limiter.Wait(ctx)
			cancel()
			if err != nil {
				_ = conn.Close()
				continue
			}
		}
		disableTCPNagle(conn)
		id := mgr.nextID.Add(1)
		mc := newMinerConn(mgr, conn, id)
		go mc.serve()
	}
}

func disableTCPNagle(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}

// BroadcastNotify pushes a pool-relayed mining.notify to every authorized
// miner verbatim; clean_jobs in params[4] is whatever the upstream pool set.
func (mgr *SessionManager) BroadcastNotify(params []any) {
	mgr.fanout(func(mc *MinerConn) { mc.sendNotify(params) })
}

// BroadcastSetTarget relays an upstream mining.set_target to every authorized
// miner. Only used in pool mode, where difficulty is the upstream's to set.
func (mgr *SessionManager) BroadcastSetTarget(target [32]byte) {
	mgr.fanout(func(mc *MinerConn) { mc.sendSetTarget(target) })
}

// BroadcastSetDifficulty relays an upstream mining.set_difficulty to every
// authorized miner.
func (mgr *SessionManager) BroadcastSetDifficulty(diff float64) {
	mgr.fanout(func(mc *MinerConn) { mc.sendSetDifficulty(diff) })
}

// ForceCleanJobBroadcast is called after a solo-mode block acceptance: the
// next poll will pick up the new template, but we don't wait for the 2s
// ticker when we already know the old job is dead.
func (mgr *SessionManager) ForceCleanJobBroadcast() {
	if mgr.mode != modeSolo || mgr.node == nil {
		return
	}
	mgr.node.PollNow()
}

// BroadcastSoloJob pushes the current solo-mode template to every connected,
// authorized miner as a fresh mining.notify/mining.set_difficulty pair. It is
// invoked by NodeClient's onNewJob callback whenever a genuinely new template
// (as opposed to a current_time refresh) is installed.
func (mgr *SessionManager) BroadcastSoloJob(jobID uint32, tmpl *blockTemplate, powHash, targetLE [32]byte) {
	mgr.fanout(func(mc *MinerConn) {
		mc.currentJobID = jobID
		mc.sendSetDifficulty(mc.vardiff.CurrentDiff())
		mc.sendNotify(soloNotifyParams(jobID, powHash, tmpl.Number, DiffToTargetLE(mc.vardiff.CurrentDiff()), true))
	})
}

// DeliverUpstreamShareResult is called from UpstreamClient once a forwarded
// share's accept/reject response arrives from the pool. It looks up the
// originating MinerConn by id and replies to that miner's own pending
// request with the upstream's verdict, verbatim.
func (mgr *SessionManager) DeliverUpstreamShareResult(minerID uint32, originalID any, resp StratumResponse) {
	for _, mc := range mgr.registry.Snapshot() {
		if mc.id != minerID {
			continue
		}
		out := StratumResponse{ID: originalID, Result: resp.Result, Error: resp.Error}
		if resp.Error == nil {
			mc.bumpAccepted()
			if mgr.metrics != nil {
				mgr.metrics.RecordShare(true, "")
			}
		} else {
			mc.bumpRejected()
			if mgr.metrics != nil {
				mgr.metrics.RecordShare(false, resp.Error.Message)
			}
		}
		mc.writeResponse(out)
		return
	}
}

// MinerCount reports the number of currently connected miners, for the stats
// projection.
func (mgr *SessionManager) MinerCount() int {
	return mgr.registry.Count()
}

// attachSoloCallback wires NodeClient's new-template hook to the broadcast
// method above. Split out from NewSoloSessionManager since NodeClient is
// constructed with a reference to TemplateState before SessionManager exists.
func (mgr *SessionManager) attachSoloCallback() {
	if mgr.node != nil {
		mgr.node.onNewJob = mgr.BroadcastSoloJob
	}
}
