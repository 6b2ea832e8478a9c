package main

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const stratumWriteTimeout = 10 * time.Second

// netDebugLogging gates the wire-level send/receive trace the teacher's
// net-debug log carried; off by default since it is extremely verbose.
var netDebugLogging atomic.Bool

func logNetMessage(direction string, b []byte) {
	if !netDebugLogging.Load() {
		return
	}
	logger.Debug("net", "dir", direction, "bytes", len(b))
}

type minerCounters struct {
	submitted uint64
	accepted  uint64
	rejected  uint64
	localOnly uint64
}

// MinerConn is a single miner's TCP connection and per-connection state.
// Created on accept, torn down on disconnect. Lines from this connection are
// processed one at a time in arrival order, and responses to it are written
// in that same order, satisfying the session-ordering guarantee.
type MinerConn struct {
	mgr  *SessionManager
	conn net.Conn

	writer  *bufio.Writer
	writeMu sync.Mutex

	id uint32

	rpc  *nodeRPCClient
	node *NodeClient

	worker       string
	authorized   bool
	sessionID    string
	extranonce1  []byte
	extranonce2N int

	pendingMu     sync.Mutex
	pendingShares map[uint64]any // allocated but never written; forwarded shares are tracked in UpstreamClient.pending

	counters   minerCounters
	countersMu sync.Mutex

	connectedAt time.Time
	vardiff     *vardiffState

	currentJobID uint32
}

func newMinerConn(mgr *SessionManager, conn net.Conn, id uint32) *MinerConn {
	return &MinerConn{
		mgr:           mgr,
		conn:          conn,
		writer:        bufio.NewWriter(conn),
		id:            id,
		rpc:           mgr.nodeRPC,
		node:          mgr.node,
		pendingShares: make(map[uint64]any),
		connectedAt:   time.Now(),
		vardiff:       newVardiffState(mgr.currentVardiffConfig(), time.Now()),
	}
}

// minerName returns a display-friendly identifier for logging: the
// authorized worker name if known, else the supplied fallback, else the
// numeric connection id.
func (mc *MinerConn) minerName(fallback string) string {
	if mc.worker != "" {
		return mc.worker
	}
	if fallback != "" {
		return fallback
	}
	return "#" + itoaUint32(mc.id)
}

func itoaUint32(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// serve runs the per-connection read loop until the socket closes or a fatal
// framing error occurs. It owns registration/deregistration with the miner
// registry.
func (mc *MinerConn) serve() {
	mgr := mc.mgr
	mgr.registry.Add(mc)
	defer func() {
		mgr.registry.Remove(mc)
		_ = mc.conn.Close()
	}()

	reader := newStratumLineReader(bufio.NewReader(mc.conn))
	for {
		line, err := reader.ReadLine()
		if err != nil {
			return
		}
		logNetMessage("recv", []byte(line))

		req, err := decodeStratumLine(line)
		if err != nil {
			logger.Warn("miner: malformed line discarded", "remote", mc.id, "error", err)
			continue
		}
		mc.handleRequest(req)
	}
}

func (mc *MinerConn) bumpSubmitted() {
	mc.countersMu.Lock()
	mc.counters.submitted++
	mc.countersMu.Unlock()
}

func (mc *MinerConn) bumpAccepted() {
	mc.countersMu.Lock()
	mc.counters.accepted++
	mc.countersMu.Unlock()
}

func (mc *MinerConn) bumpRejected() {
	mc.countersMu.Lock()
	mc.counters.rejected++
	mc.countersMu.Unlock()
}

func (mc *MinerConn) bumpLocalOnly() {
	mc.countersMu.Lock()
	mc.counters.localOnly++
	mc.countersMu.Unlock()
}

func (mc *MinerConn) snapshotCounters() minerCounters {
	mc.countersMu.Lock()
	defer mc.countersMu.Unlock()
	return mc.counters
}
