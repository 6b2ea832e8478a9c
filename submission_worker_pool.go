package main

import (
	"runtime"
	"sync"
)

const (
	// submissionWorkerQueueMultiplier determines how much backlog we allow
	// per worker goroutine.
	submissionWorkerQueueMultiplier = 32
	// submissionWorkerQueueMinDepth ensures the queue can hold at least this
	// many tasks regardless of CPU count.
	submissionWorkerQueueMinDepth = 128
)

var (
	submissionWorkers    *submissionWorkerPool
	submissionWorkerOnce sync.Once
)

func ensureSubmissionWorkerPool() {
	submissionWorkerOnce.Do(func() {
		workers := runtime.NumCPU()
		if workers <= 0 {
			workers = 1
		}
		submissionWorkers = newSubmissionWorkerPool(workers)
	})
}

// submissionTask carries everything processSubmissionTask needs to build and
// POST a submit_block payload, once HashCore has already validated a share
// against the network target on the miner's own goroutine (that part is
// pure and fast enough to run inline; only the node round-trip is offloaded
// here).
type submissionTask struct {
	mc             *MinerConn
	workerName     string
	tmpl           *blockTemplate
	nonce          [16]byte
	powHashHex     string
	originalNumber uint64
}

type submissionWorkerPool struct {
	tasks chan submissionTask
}

func newSubmissionWorkerPool(workerCount int) *submissionWorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	queueDepth := workerCount * submissionWorkerQueueMultiplier
	if queueDepth < submissionWorkerQueueMinDepth {
		queueDepth = submissionWorkerQueueMinDepth
	}
	pool := &submissionWorkerPool{
		tasks: make(chan submissionTask, queueDepth),
	}
	for i := 0; i < workerCount; i++ {
		go pool.worker(i)
	}
	return pool
}

func (p *submissionWorkerPool) submit(task submissionTask) {
	p.tasks <- task
}

func (p *submissionWorkerPool) worker(id int) {
	for task := range p.tasks {
		func(t submissionTask) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("submission worker panic", "worker", id, "error", r)
				}
			}()
			t.mc.processSubmissionTask(t)
		}(task)
	}
}

// processSubmissionTask builds the submit_block payload (template fields plus
// the winning nonce, hex-encoded and left-padded to 32 characters) and
// submits it with aggressive retry.
func (mc *MinerConn) processSubmissionTask(t submissionTask) {
	if mc.mgr == nil || mc.mgr.metrics == nil {
		return
	}
	nonceHex := hexEncode(t.nonce[:])
	for len(nonceHex) < 32 {
		nonceHex = "0" + nonceHex
	}

	block := map[string]any{
		"header": map[string]any{
			"version":           t.tmpl.Version,
			"compact_target":    t.tmpl.CompactTarget,
			"timestamp":         t.tmpl.CurrentTime,
			"number":            t.tmpl.Number,
			"epoch":             t.tmpl.Epoch,
			"parent_hash":       t.tmpl.ParentHash,
			"transactions_root": t.tmpl.TransactionsRoot,
			"proposals_hash":    t.tmpl.ProposalsHash,
			"extra_hash":        t.tmpl.UnclesHash,
			"dao":               t.tmpl.Dao,
			"nonce":             "0x" + nonceHex,
		},
		"uncles":       t.tmpl.Uncles,
		"transactions": t.tmpl.Transactions,
		"proposals":    t.tmpl.Proposals,
	}

	var result any
	err := mc.submitBlockWithFastRetry(t.originalNumber, t.tmpl.WorkID, t.powHashHex, block, &result)
	if err != nil {
		mc.mgr.metrics.RecordBlockSubmission("error")
		logger.Error("submit_block failed", "worker", t.workerName, "error", err)
		return
	}
	mc.mgr.metrics.RecordBlockSubmission("accepted")
	logger.Info("submit_block accepted", "worker", t.workerName, "number", t.tmpl.Number)
	mc.mgr.notifier.NotifyBlockFound(modeSolo, t.tmpl.Number, t.workerName, mc.vardiff.CurrentDiff())
	mc.mgr.ForceCleanJobBroadcast()
}
