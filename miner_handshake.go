package main

// handleRequest dispatches one decoded Stratum request to the appropriate
// handler. Exactly one complete line is processed at a time per miner, and
// its response is written before the next line for that miner is read,
// giving the required in-order response guarantee without a per-request
// lock: each MinerConn's reads are only ever driven by its own goroutine
// (writes are serialized by writeMu, since broadcasts write from others).
func (mc *MinerConn) handleRequest(req StratumRequest) {
	switch req.Method {
	case "mining.subscribe":
		mc.handleSubscribe(req)
	case "mining.authorize":
		mc.handleAuthorize(req)
	case "mining.submit":
		mc.handleSubmit(req)
	case "mining.get_transactions":
		mc.writeEmptySliceResponse(req.ID)
	case "mining.extranonce.subscribe", "mining.suggest_difficulty", "mining.suggest_target":
		mc.writeTrueResponse(req.ID)
	default:
		logger.Warn("miner: unhandled method", "remote", mc.id, "method", req.Method)
	}
}

func (mc *MinerConn) handleSubscribe(req StratumRequest) {
	mgr := mc.mgr

	var clientSessionID string
	if len(req.Params) >= 2 {
		if s, ok := req.Params[1].(string); ok {
			clientSessionID = s
		}
	}

	if mgr.mode == modePool {
		en1Prefix, poolEn2Size, _, _, _, _, _, _ := mgr.pool.Snapshot()
		mc.extranonce1 = minerExtranonce1(en1Prefix, mc.id)
		mc.extranonce2N = poolEn2Size - 1
		if mc.extranonce2N < 1 {
			mc.extranonce2N = 1
		}
		resp := stratumOKReply(req.ID, []any{nil, hexEncode(mc.extranonce1), mc.extranonce2N})
		mc.writeResponse(resp)
		return
	}

	// Solo mode: Goldshell-style session-resume placeholder triple.
	if clientSessionID != "" {
		mc.sessionID = clientSessionID
	} else {
		mc.sessionID = newSessionID(mgr.entropySeed, mc.id)
	}
	result := []any{
		[]any{
			[]any{"mining.set_difficulty", mc.sessionID},
			[]any{"mining.notify", mc.sessionID},
		},
		mc.sessionID,
		4,
	}
	mc.writeResponse(stratumOKReply(req.ID, result))
}

func (mc *MinerConn) handleAuthorize(req StratumRequest) {
	mgr := mc.mgr
	if len(req.Params) >= 1 {
		if w, ok := req.Params[0].(string); ok {
			mc.worker = w
		}
	}
	mc.authorized = true
	mc.writeResponse(stratumOKReply(req.ID, true))

	// Push current target/difficulty and current job per the handshake
	// rule: authorize success is immediately followed by the miner's
	// current work so it need not wait for the next broadcast.
	if mgr.mode == modePool {
		_, _, job, target, haveTarget, diff, haveDiff, _ := mgr.pool.Snapshot()
		if haveDiff {
			mc.sendSetDifficulty(diff)
		}
		if haveTarget {
			mc.sendSetTarget(target)
		}
		if job != nil {
			mc.sendNotify(job)
		}
		return
	}

	mc.pushCurrentSoloJob()
}

func (mc *MinerConn) pushCurrentSoloJob() {
	mgr := mc.mgr
	tmpl, powHash, targetLE, jobID, _ := mgr.tmpl.Snapshot()
	if tmpl == nil {
		return
	}
	scaled := mc.scaledTargetLE(targetLE)
	mc.sendSetDifficulty(mc.vardiff.CurrentDiff())
	mc.currentJobID = jobID
	mc.sendNotify(soloNotifyParams(jobID, powHash, tmpl.Number, scaled, true))
}

// scaledTargetLE is the miner-facing target derived from its current vardiff
// difficulty. The network target is only consulted at submit_block time, in
// handleSubmit.
func (mc *MinerConn) scaledTargetLE(_ [32]byte) [32]byte {
	return DiffToTargetLE(mc.vardiff.CurrentDiff())
}

func soloNotifyParams(jobID uint32, powHash [32]byte, height uint64, targetLE [32]byte, cleanJobs bool) []any {
	return []any{
		jobIDHex(jobID),
		hexEncode(powHash[:]),
		height,
		targetLEToHex(targetLE),
		cleanJobs,
	}
}

func jobIDHex(id uint32) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = hexDigits[id&0xf]
		id >>= 4
	}
	return string(buf)
}

func (mc *MinerConn) sendNotify(params []any) {
	mc.writeJSON(StratumRequest{ID: nil, Method: "mining.notify", Params: params})
}

func (mc *MinerConn) sendSetTarget(targetLE [32]byte) {
	mc.writeJSON(StratumRequest{ID: nil, Method: "mining.set_target", Params: []any{targetLEToHex(targetLE)}})
}

func (mc *MinerConn) sendSetDifficulty(diff float64) {
	mc.writeJSON(StratumRequest{ID: nil, Method: "mining.set_difficulty", Params: []any{diff}})
}
