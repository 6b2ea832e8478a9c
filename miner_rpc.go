package main

import (
	"context"
	"time"
)

// submitBlockWithFastRetry aggressively retries submit_block without backoff
// to maximize the chance of winning the propagation race against other CKB
// nodes on the network. It retries every 100ms until either submit_block
// succeeds, a newer template is observed, or a safety window elapses.
func (mc *MinerConn) submitBlockWithFastRetry(originalNumber uint64, workID, powHashHex string, block any, submitRes *any) error {
	const (
		retryInterval = 100 * time.Millisecond
		// rpcCallTimeout bounds each individual RPC call so an overloaded
		// node doesn't block the retry loop indefinitely.
		rpcCallTimeout = 5 * time.Second
		// confirmTimeout bounds get_block checks used to detect cases where
		// submit_block may have succeeded server-side but the client-side
		// call timed out.
		confirmTimeout = 2 * time.Second
		// maxRetryWindow is a final safety cap; in practice we expect to
		// stop much sooner once a newer template is observed.
		maxRetryWindow = 10 * time.Minute
	)

	start := time.Now()
	attempt := 0
	var lastErr error

	blockKnown := func() bool {
		if mc.rpc == nil || powHashHex == "" {
			return false
		}
		var got any
		ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
		err := mc.rpc.callCtx(ctx, "get_block", []any{powHashHex}, &got)
		cancel()
		return err == nil && got != nil
	}

	for {
		attempt++

		callCtx, cancel := context.WithTimeout(context.Background(), rpcCallTimeout)
		err := mc.rpc.callCtx(callCtx, "submit_block", []any{workID, block}, submitRes)
		cancel()

		if err == nil {
			if attempt > 1 {
				logger.Info("submit_block succeeded after retries",
					"attempts", attempt,
					"work_id", workID,
					"pow_hash", powHashHex,
				)
			}
			return nil
		}
		lastErr = err

		if blockKnown() {
			logger.Warn("submit_block call failed but block is known to the node; treating as success",
				"attempts", attempt,
				"work_id", workID,
				"pow_hash", powHashHex,
			)
			return nil
		}

		if attempt == 1 {
			logger.Error("submit_block error; retrying aggressively",
				"error", err,
				"work_id", workID,
				"pow_hash", powHashHex,
			)
		}

		if mc.node != nil {
			if cur := mc.node.CurrentTemplateNumber(); cur > originalNumber {
				logger.Warn("submit_block giving up after newer template seen",
					"original_number", originalNumber,
					"current_number", cur,
					"attempts", attempt,
					"error", err,
				)
				return err
			}
		}

		if time.Since(start) >= maxRetryWindow {
			logger.Error("submit_block giving up after retry window",
				"attempts", attempt,
				"duration", time.Since(start),
				"error", lastErr,
			)
			return lastErr
		}

		time.Sleep(retryInterval)
	}
}
