package main

import (
	"errors"
	"time"
)

var (
	errEmptyJobID = errors.New("empty job id")
	errBadJobID   = errors.New("malformed job id")
)

// handleSubmit implements mining.submit for both relay modes. The five-tuple
// is [worker, job_id, extranonce2, ntime, nonce]; in pool mode ntime is
// forwarded upstream unchanged, while solo-mode share validation does not
// consume it (CKB's pow_hash has no nTime-rolling concept the way Bitcoin's
// does).
func (mc *MinerConn) handleSubmit(req StratumRequest) {
	mc.bumpSubmitted()

	if mc.vardiff != nil {
		prevDiff := mc.vardiff.CurrentDiff()
		if newDiff, changed := mc.vardiff.Tick(time.Now()); changed {
			mc.sendSetDifficulty(newDiff)
			mc.sendSetTarget(DiffToTargetLE(newDiff))
			if mc.mgr != nil && mc.mgr.metrics != nil {
				dir := "down"
				if newDiff > prevDiff {
					dir = "up"
				}
				mc.mgr.metrics.RecordVardiffMove(dir)
			}
		}
	}

	if len(req.Params) < 5 {
		mc.bumpRejected()
		mc.writeResponse(stratumErrorReply(req.ID, stratumErrJobNotFound, "bad params"))
		return
	}
	workerName, _ := req.Params[0].(string)
	jobIDHexStr, _ := req.Params[1].(string)
	en2Hex, _ := req.Params[2].(string)
	ntimeHex, _ := req.Params[3].(string)
	nonceHex, _ := req.Params[4].(string)

	if mc.mgr.mode == modePool {
		mc.forwardPoolShare(req.ID, jobIDHexStr, en2Hex, ntimeHex, nonceHex)
		return
	}
	mc.validateSoloShare(req.ID, workerName, jobIDHexStr, nonceHex)
}

func (mc *MinerConn) forwardPoolShare(reqID any, jobID, en2Hex, ntimeHex, nonceHex string) {
	mgr := mc.mgr
	en2, err := hexDecode(en2Hex)
	if err != nil {
		mc.bumpRejected()
		mc.writeResponse(stratumErrorReply(reqID, stratumErrJobNotFound, "bad extranonce2"))
		return
	}
	if mgr.upstream == nil {
		mc.bumpRejected()
		mc.writeResponse(stratumErrorReply(reqID, stratumErrJobNotFound, "upstream unavailable"))
		return
	}

	mc.pendingMu.Lock()
	// Nothing is recorded on this side: UpstreamClient's pending map holds
	// (upstreamID -> minerID/reqID), and a reply for a miner that has since
	// disconnected is dropped silently by DeliverUpstreamShareResult.
	mc.pendingMu.Unlock()

	if err := mgr.upstream.ForwardShare(mc.id, reqID, jobID, ntimeHex, nonceHex, en2); err != nil {
		mc.bumpRejected()
		mc.writeResponse(stratumErrorReply(reqID, stratumErrJobNotFound, "forward failed"))
		return
	}
	// Do not validate and do not respond yet; the response arrives
	// asynchronously via DeliverUpstreamShareResult once the pool replies.
}

func (mc *MinerConn) validateSoloShare(reqID any, workerName, jobIDHexStr, nonceHex string) {
	mgr := mc.mgr

	tmpl, powHash, networkTargetLE, currentJobID, _ := mgr.tmpl.Snapshot()
	if tmpl == nil {
		mc.bumpLocalOnly()
		mc.writeResponse(stratumOKReply(reqID, true))
		return
	}

	submittedJobID, err := parseJobIDHex(jobIDHexStr)
	if err != nil || submittedJobID != currentJobID {
		// Stale share: ACK true without validation, matching the
		// documented replay-storm mitigation (see DESIGN.md's Open
		// Question resolution); counted separately from validated shares.
		mc.bumpLocalOnly()
		mc.writeResponse(stratumOKReply(reqID, true))
		return
	}

	var nonce [16]byte
	nonceBytes, err := hexDecode(nonceHex)
	if err != nil {
		mc.bumpRejected()
		mc.writeResponse(stratumErrorReply(reqID, stratumErrLowDifficulty, "bad nonce"))
		return
	}
	copy(nonce[16-len(nonceBytes):], nonceBytes)

	input := MiningInput(powHash, nonce)
	hash := HashEaglesong(input[:])

	localTargetLE := DiffToTargetLE(mc.vardiff.CurrentDiff())
	if !MeetsTarget(hash, localTargetLE) {
		mc.bumpRejected()
		mc.writeResponse(stratumErrorReply(reqID, stratumErrLowDifficulty, "Low difficulty share"))
		return
	}

	mc.bumpAccepted()
	mc.writeResponse(stratumOKReply(reqID, true))

	if mgr.metrics != nil {
		mgr.metrics.RecordShare(true, "")
		mgr.metrics.TrackBestShare(mc.minerName(workerName), hexEncode(hash[:]), mc.vardiff.CurrentDiff(), time.Now())
	}

	if MeetsTarget(hash, networkTargetLE) {
		ensureSubmissionWorkerPool()
		submissionWorkers.submit(submissionTask{
			mc:             mc,
			workerName:     mc.minerName(workerName),
			tmpl:           tmpl,
			nonce:          nonce,
			powHashHex:     hexEncode(powHash[:]),
			originalNumber: tmpl.Number,
		})
	}
}

func parseJobIDHex(s string) (uint32, error) {
	var v uint32
	if len(s) == 0 {
		return 0, errEmptyJobID
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, errBadJobID
		}
		v = v<<4 | d
	}
	return v, nil
}
