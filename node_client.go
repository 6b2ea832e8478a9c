package main

import (
	"context"
	"strconv"
	"strings"
	"time"
)

const (
	nodePollInterval   = 2 * time.Second
	nodeRequestTimeout = 8 * time.Second
	nodeWatchdogPeriod = 60 * time.Second
	nodeStalenessLimit = 300 * time.Second
	nodeFailLogEvery   = 30
)

// NodeClient is the solo-mode get_block_template/submit_block poller.
// Grounded on the teacher's job_refresh.go/job_manager.go poll cadence and
// staleness-watchdog pattern, adapted from Bitcoin's getblocktemplate to
// CKB's get_block_template/submit_block pair.
type NodeClient struct {
	rpc     *nodeRPCClient
	state   *TemplateState
	metrics *PoolMetrics

	onNewJob func(jobID uint32, tmpl *blockTemplate, powHash, targetLE [32]byte)

	failCount int
	stopCh    chan struct{}
}

func NewNodeClient(rpcURL string, metrics *PoolMetrics, state *TemplateState) *NodeClient {
	return &NodeClient{
		rpc:     newNodeRPCClient(rpcURL, nodeRequestTimeout, metrics),
		state:   state,
		metrics: metrics,
		stopCh:  make(chan struct{}),
	}
}

// CurrentTemplateNumber reports the height of the most recently accepted
// template, used by the submit-retry loop to detect a newer template.
func (n *NodeClient) CurrentTemplateNumber() uint64 {
	return n.state.CurrentTemplateNumber()
}

// Start launches the poll loop and watchdog goroutines.
func (n *NodeClient) Start() {
	go n.pollLoop()
	go n.watchdogLoop()
}

func (n *NodeClient) Stop() {
	close(n.stopCh)
}

func (n *NodeClient) pollLoop() {
	ticker := time.NewTicker(nodePollInterval)
	defer ticker.Stop()
	n.pollOnce()
	for {
		select {
		case <-ticker.C:
			n.pollOnce()
		case <-n.stopCh:
			return
		}
	}
}

// PollNow triggers an out-of-cadence poll, used by the optional ZMQ hint
// listener to reduce latency without replacing the poll loop as the
// authoritative source of truth.
func (n *NodeClient) PollNow() {
	go n.pollOnce()
}

func (n *NodeClient) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), nodeRequestTimeout)
	defer cancel()

	var tmpl blockTemplate
	err := n.rpc.callCtx(ctx, "get_block_template", []any{nil, nil, nil}, &tmpl)
	if err != nil {
		n.recordFailure(err)
		return
	}
	n.recordSuccess()

	now := time.Now()
	if !n.state.isNewTemplate(&tmpl) {
		n.state.RefreshTime(tmpl.CurrentTime, now)
		return
	}

	targetLE := CompactToTargetLE(tmpl.CompactTarget)
	header := RawHeader{
		Version:       tmpl.Version,
		CompactTarget: tmpl.CompactTarget,
		Timestamp:     parseHexUint64(tmpl.CurrentTime),
		Number:        tmpl.Number,
		Epoch:         tmpl.Epoch,
	}
	if ph, err := hexToTargetLE(tmpl.ParentHash); err == nil {
		header.ParentHash = ph
	}
	if tr, err := hexToTargetLE(tmpl.TransactionsRoot); err == nil {
		header.TransactionsRoot = tr
	}
	if pr, err := hexToTargetLE(tmpl.ProposalsHash); err == nil {
		header.ProposalsHash = pr
	}
	if uh, err := hexToTargetLE(tmpl.UnclesHash); err == nil {
		header.ExtraHash = uh
	}
	if dao, err := hexToTargetLE(tmpl.Dao); err == nil {
		header.Dao = dao
	}
	powHash := header.ComputePowHash()

	jobID := n.state.Update(&tmpl, powHash, targetLE, now)

	if n.onNewJob != nil {
		n.onNewJob(jobID, &tmpl, powHash, targetLE)
	}
}

// parseHexUint64 decodes a CKB RPC "0x..."-prefixed hex quantity, returning 0
// for an empty or malformed string rather than failing template ingestion
// over an unparsable timestamp.
func parseHexUint64(s string) uint64 {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0
	}
	return v
}

func (n *NodeClient) recordFailure(err error) {
	n.failCount++
	if n.failCount == 1 {
		n.state.SetHealthy(false)
		logger.Error("node poll failed; marking unhealthy", "error", err)
		return
	}
	if n.failCount%nodeFailLogEvery == 0 {
		logger.Error("node poll still failing", "attempts", n.failCount, "error", err)
	}
}

func (n *NodeClient) recordSuccess() {
	if n.failCount != 0 {
		logger.Info("node poll recovered", "previous_failures", n.failCount)
	}
	n.failCount = 0
	n.state.SetHealthy(true)
}

func (n *NodeClient) watchdogLoop() {
	ticker := time.NewTicker(nodeWatchdogPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if last := n.state.LastFetch(); !last.IsZero() && time.Since(last) > nodeStalenessLimit {
				logger.Warn("template fetch stale", "since", time.Since(last))
			}
		case <-n.stopCh:
			return
		}
	}
}
