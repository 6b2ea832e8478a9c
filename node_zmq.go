package main

import (
	"github.com/pebbe/zmq4"
)

// zmqHintListener optionally subscribes to a CKB node's ZMQ "new tip"
// publisher to trigger an early poll. It is non-authoritative: the regular
// poll loop remains the source of truth, and every hint is followed by a
// fully revalidated get_block_template call rather than trusting the ZMQ
// payload's contents, mirroring the teacher's own ZMQ hash-block listener
// (startZMQLoops/ZMQHashBlockAddr) that only ever nudges the job manager to
// refetch rather than acting on the notification payload directly.
type zmqHintListener struct {
	addr string
	node *NodeClient
	stop chan struct{}
}

func newZMQHintListener(addr string, node *NodeClient) *zmqHintListener {
	return &zmqHintListener{addr: addr, node: node, stop: make(chan struct{})}
}

func (z *zmqHintListener) Start() {
	if z.addr == "" {
		return
	}
	go z.run()
}

func (z *zmqHintListener) Stop() {
	select {
	case <-z.stop:
	default:
		close(z.stop)
	}
}

func (z *zmqHintListener) run() {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		logger.Error("zmq hint: socket create failed", "error", err)
		return
	}
	defer sock.Close()

	if err := sock.Connect(z.addr); err != nil {
		logger.Error("zmq hint: connect failed", "addr", z.addr, "error", err)
		return
	}
	if err := sock.SetSubscribe(""); err != nil {
		logger.Error("zmq hint: subscribe failed", "error", err)
		return
	}

	logger.Info("zmq hint listener started", "addr", z.addr)
	for {
		select {
		case <-z.stop:
			return
		default:
		}
		if _, err := sock.RecvMessage(0); err != nil {
			logger.Warn("zmq hint: recv error", "error", err)
			continue
		}
		z.node.PollNow()
	}
}
