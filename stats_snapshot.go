package main

import (
	"time"

	"github.com/hako/durafmt"
)

// MinerSnapshot is one connected miner's row in the stats projection.
type MinerSnapshot struct {
	ID            uint32  `json:"id"`
	Worker        string  `json:"worker"`
	Difficulty    float64 `json:"difficulty"`
	Submitted     uint64  `json:"submitted"`
	Accepted      uint64  `json:"accepted"`
	Rejected      uint64  `json:"rejected"`
	LocalOnly     uint64  `json:"local_only"`
	HashrateHS    float64 `json:"hashrate_hs"`
	ConnectedSecs float64 `json:"connected_seconds"`
}

// StatsSnapshot is the read-only JSON projection served by GET / and pushed
// over /ws. Everything here is derived from in-memory state; nothing is
// read from or written to disk.
type StatsSnapshot struct {
	Mode          string  `json:"mode"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	UptimeHuman   string  `json:"uptime_human"`

	Miners     []MinerSnapshot `json:"miners"`
	MinerCount int             `json:"miner_count"`

	Accepted      uint64            `json:"accepted"`
	Rejected      uint64            `json:"rejected"`
	RejectReasons map[string]uint64 `json:"reject_reasons,omitempty"`

	UpstreamReady   bool `json:"upstream_ready,omitempty"`
	HasTemplate     bool `json:"has_template,omitempty"`
	NodeHealthy     bool `json:"node_healthy,omitempty"`
	TemplateNumber  uint64 `json:"template_number,omitempty"`

	VardiffUp        uint64 `json:"vardiff_up"`
	VardiffDown      uint64 `json:"vardiff_down"`
	BlocksAccepted   uint64 `json:"blocks_accepted"`
	BlocksErrored    uint64 `json:"blocks_errored"`
	RPCErrors        uint64 `json:"rpc_errors"`
	ShareErrors      uint64 `json:"share_errors"`

	BestShares []BestShare `json:"best_shares,omitempty"`
}

// BuildStatsSnapshot assembles the current read-only view. Called on every
// GET / and on every periodic /ws push.
func (mgr *SessionManager) BuildStatsSnapshot() StatsSnapshot {
	uptime := time.Since(mgr.startedAt)

	snap := StatsSnapshot{
		Mode:          mgr.mode,
		UptimeSeconds: uptime.Seconds(),
		UptimeHuman:   durafmt.Parse(uptime).LimitFirstN(2).String(),
	}

	if mgr.metrics != nil {
		snap.Accepted, snap.Rejected, snap.RejectReasons = mgr.metrics.Snapshot()
		snap.VardiffUp, snap.VardiffDown, snap.BlocksAccepted, snap.BlocksErrored,
			_, _, _, _, _, _, snap.RPCErrors, snap.ShareErrors = mgr.metrics.SnapshotDiagnostics()
		snap.BestShares = mgr.metrics.SnapshotBestShares()
	}

	if mgr.mode == modePool && mgr.upstream != nil {
		snap.UpstreamReady = mgr.upstream.Ready()
	}
	if mgr.mode == modeSolo && mgr.tmpl != nil {
		tmpl, _, _, _, healthy := mgr.tmpl.Snapshot()
		snap.HasTemplate = tmpl != nil
		snap.NodeHealthy = healthy
		snap.TemplateNumber = mgr.tmpl.CurrentTemplateNumber()
	}

	conns := mgr.registry.Snapshot()
	snap.MinerCount = len(conns)
	snap.Miners = make([]MinerSnapshot, 0, len(conns))
	for _, mc := range conns {
		c := mc.snapshotCounters()
		connected := time.Since(mc.connectedAt).Seconds()
		diff := mc.vardiff.CurrentDiff()
		var hashrate float64
		if connected > 0 {
			hashrate = (float64(c.accepted) / connected) * diff * 4294967296.0
		}
		snap.Miners = append(snap.Miners, MinerSnapshot{
			ID:            mc.id,
			Worker:        mc.minerName(""),
			Difficulty:    diff,
			Submitted:     c.submitted,
			Accepted:      c.accepted,
			Rejected:      c.rejected,
			LocalOnly:     c.localOnly,
			HashrateHS:    hashrate,
			ConnectedSecs: connected,
		})
	}

	return snap
}

// HealthSnapshot is the minimal GET /health payload.
type HealthSnapshot struct {
	OK              bool `json:"ok"`
	Miners          int  `json:"miners"`
	UpstreamReady   bool `json:"upstreamReady,omitempty"`
	HasTemplate     bool `json:"hasTemplate,omitempty"`
}

func (mgr *SessionManager) BuildHealthSnapshot() HealthSnapshot {
	h := HealthSnapshot{Miners: mgr.registry.Count()}
	switch mgr.mode {
	case modePool:
		h.UpstreamReady = mgr.upstream != nil && mgr.upstream.Ready()
		h.OK = h.UpstreamReady
	case modeSolo:
		if mgr.tmpl != nil {
			tmpl, _, _, _, healthy := mgr.tmpl.Snapshot()
			h.HasTemplate = tmpl != nil
			h.OK = healthy && h.HasTemplate
		}
	}
	return h
}
