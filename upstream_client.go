package main

import (
	"bufio"
	"encoding/hex"
	"net"
	"sync"
	"time"
)

type upstreamConnState int

const (
	upstreamDisconnected upstreamConnState = iota
	upstreamConnecting
	upstreamSubscribed
	upstreamReady
)

const (
	upstreamInitialBackoff = 2 * time.Second
	upstreamMaxBackoff     = 60 * time.Second
	upstreamDialTimeout    = 10 * time.Second
)

type pendingUpstreamShare struct {
	originalID any
	minerID    uint32
}

// UpstreamClient is the pool-mode reconnect/relay state machine. Grounded on
// the teacher's reconnect_tracker.go backoff bookkeeping and miner_rpc.go's
// context-bounded-call/retry-logging style.
type UpstreamClient struct {
	host, port string
	user, pass string

	pool *PoolState
	mgr  *SessionManager

	mu      sync.Mutex
	conn    net.Conn
	writer  *bufio.Writer
	state   upstreamConnState
	backoff time.Duration

	nextID  uint64
	pending map[uint64]pendingContext

	stopCh chan struct{}
}

type pendingContext struct {
	kind  string // "subscribe" | "authorize" | "share"
	share pendingUpstreamShare
}

func NewUpstreamClient(host, port, user, pass string, pool *PoolState, mgr *SessionManager) *UpstreamClient {
	return &UpstreamClient{
		host: host, port: port, user: user, pass: pass,
		pool:    pool,
		mgr:     mgr,
		backoff: upstreamInitialBackoff,
		nextID:  100,
		pending: make(map[uint64]pendingContext),
		stopCh:  make(chan struct{}),
	}
}

func (u *UpstreamClient) Start() {
	go u.runLoop()
}

func (u *UpstreamClient) Stop() {
	close(u.stopCh)
}

func (u *UpstreamClient) setState(s upstreamConnState) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()
}

func (u *UpstreamClient) Ready() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state == upstreamReady
}

// SetCredentials updates the username/password used on the next
// mining.authorize; an already-authorized connection is left alone until it
// reconnects.
func (u *UpstreamClient) SetCredentials(user, pass string) {
	u.mu.Lock()
	u.user, u.pass = user, pass
	u.mu.Unlock()
}

func (u *UpstreamClient) runLoop() {
	for {
		select {
		case <-u.stopCh:
			return
		default:
		}

		if err := u.connectAndServe(); err != nil {
			logger.Warn("upstream connection ended", "error", err)
		}

		u.setState(upstreamDisconnected)
		u.pool.SetReady(false)

		select {
		case <-u.stopCh:
			return
		case <-time.After(u.backoff):
		}

		u.backoff *= 2
		if u.backoff > upstreamMaxBackoff {
			u.backoff = upstreamMaxBackoff
		}
	}
}

func (u *UpstreamClient) connectAndServe() error {
	u.setState(upstreamConnecting)
	addr := net.JoinHostPort(u.host, u.port)
	conn, err := net.DialTimeout("tcp", addr, upstreamDialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	u.mu.Lock()
	u.conn = conn
	u.writer = bufio.NewWriter(conn)
	u.backoff = upstreamInitialBackoff
	u.mu.Unlock()

	if err := u.sendSubscribe(); err != nil {
		return err
	}

	reader := newStratumLineReader(bufio.NewReader(conn))
	for {
		line, err := reader.ReadLine()
		if err != nil {
			return err
		}
		u.handleLine(line)
	}
}

func (u *UpstreamClient) writeRequest(id uint64, method string, params []any) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	b, err := fastJSONMarshal(StratumRequest{ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if u.writer == nil {
		return net.ErrClosed
	}
	if _, err := u.writer.Write(b); err != nil {
		return err
	}
	return u.writer.Flush()
}

func (u *UpstreamClient) allocID(ctx pendingContext) uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := u.nextID
	u.nextID++
	u.pending[id] = ctx
	return id
}

func (u *UpstreamClient) sendSubscribe() error {
	id := u.allocID(pendingContext{kind: "subscribe"})
	return u.writeRequest(id, "mining.subscribe", []any{})
}

func (u *UpstreamClient) sendAuthorize() error {
	id := u.allocID(pendingContext{kind: "authorize"})
	u.mu.Lock()
	user, pass := u.user, u.pass
	u.mu.Unlock()
	return u.writeRequest(id, "mining.authorize", []any{user, pass})
}

// ForwardShare forwards a miner's share upstream with the extranonce2
// prefix rewritten to the miner's id byte, per §4.5/§4.7's rewrite rule.
func (u *UpstreamClient) ForwardShare(minerID uint32, originalID any, jobID, ntime, nonce string, minerEn2 []byte) error {
	upstreamEn2 := upstreamExtranonce2(minerID, minerEn2)
	id := u.allocID(pendingContext{kind: "share", share: pendingUpstreamShare{originalID: originalID, minerID: minerID}})
	return u.writeRequest(id, "mining.submit", []any{u.user, jobID, hexEncode(upstreamEn2), ntime, nonce})
}

func (u *UpstreamClient) handleLine(line string) {
	req, err := decodeStratumLine(line)
	if err != nil {
		// Could be a response (has "result"/"error" but no "method"); try
		// that shape before giving up and discarding the line.
		u.handleResponseLine(line)
		return
	}
	if req.Method != "" {
		u.handleNotification(req)
		return
	}
	u.handleResponseLine(line)
}

func (u *UpstreamClient) handleResponseLine(line string) {
	var resp StratumResponse
	if err := fastJSONUnmarshal([]byte(line), &resp); err != nil {
		logger.Warn("upstream: malformed line discarded", "error", err)
		return
	}
	id, ok := toUint64(resp.ID)
	if !ok {
		logger.Warn("upstream: response with unrecognized id", "id", resp.ID)
		return
	}

	u.mu.Lock()
	ctx, found := u.pending[id]
	if found {
		delete(u.pending, id)
	}
	u.mu.Unlock()

	if !found {
		logger.Warn("upstream: response for unknown id", "id", id)
		return
	}

	switch ctx.kind {
	case "subscribe":
		u.onSubscribeResponse(resp)
	case "authorize":
		u.onAuthorizeResponse(resp)
	case "share":
		u.onShareResponse(ctx.share, resp)
	}
}

func (u *UpstreamClient) onSubscribeResponse(resp StratumResponse) {
	results, ok := resp.Result.([]any)
	if !ok || len(results) < 3 {
		logger.Error("upstream: malformed subscribe response")
		return
	}
	en1Hex, _ := results[1].(string)
	en1, _ := hexDecode(en1Hex)
	en2Size := 4
	if n, ok := toFloat(results[2]); ok {
		en2Size = int(n)
	}
	u.pool.SetSubscribeResult(en1, en2Size)
	u.setState(upstreamSubscribed)
	if err := u.sendAuthorize(); err != nil {
		logger.Error("upstream: authorize send failed", "error", err)
	}
}

func (u *UpstreamClient) onAuthorizeResponse(resp StratumResponse) {
	ok, _ := resp.Result.(bool)
	if !ok {
		logger.Error("upstream: authorize rejected")
		return
	}
	u.setState(upstreamReady)
	u.pool.SetReady(true)
	logger.Info("upstream ready")
}

func (u *UpstreamClient) onShareResponse(share pendingUpstreamShare, resp StratumResponse) {
	if u.mgr == nil {
		return
	}
	u.mgr.DeliverUpstreamShareResult(share.minerID, share.originalID, resp)
}

func (u *UpstreamClient) handleNotification(req StratumRequest) {
	switch req.Method {
	case "mining.notify":
		u.pool.SetJob(req.Params)
		if u.mgr != nil {
			u.mgr.BroadcastNotify(req.Params)
		}
	case "mining.set_target":
		if len(req.Params) >= 1 {
			if s, ok := req.Params[0].(string); ok {
				if t, err := hexToTargetLE(s); err == nil {
					u.pool.SetTarget(t)
					if u.mgr != nil {
						u.mgr.BroadcastSetTarget(t)
					}
				}
			}
		}
	case "mining.set_difficulty":
		if len(req.Params) >= 1 {
			if d, ok := toFloat(req.Params[0]); ok {
				u.pool.SetDifficulty(d)
				if u.mgr != nil {
					u.mgr.BroadcastSetDifficulty(d)
				}
			}
		}
	default:
		logger.Warn("upstream: unhandled notification", "method", req.Method)
	}
}

func toUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case float64:
		return uint64(x), true
	case uint64:
		return x, true
	case int:
		return uint64(x), true
	case jsonNumber:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return uint64(i), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case jsonNumber:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
