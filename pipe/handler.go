// PipeHandler (spec.md §4.8), grounded on
// original_source/src/PipeHandler.cpp: one long-lived acceptor that
// opens a single endpoint for its lifetime and, per iteration, blocks
// until the next client connection arrives (the socket counterpart of a
// fresh pipe instance), then either admits the client (bounded by
// maxClients) or rejects it with a failed ConnectionStatus.
package pipe

import (
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcbridge/pipebridge/cmn/nlog"
	"github.com/arcbridge/pipebridge/track"
	"github.com/arcbridge/pipebridge/wire"
)

// Handler is the accept loop plus fan-out dispatcher (spec.md §4.8).
type Handler struct {
	newEndpoint func() (Endpoint, error)
	maxClients  int
	threadCfg   Config

	bridgeInfo func() wire.BridgeInfo
	snap       Snapshotter
	mt         *track.Tracking

	mu      sync.Mutex
	threads []*Thread
	run     atomic.Bool
	running atomic.Bool
	waiting atomic.Bool

	nextID   uint64
	endpoint Endpoint
	acceptWG sync.WaitGroup
}

// NewHandler wires the accept loop to pipePath and the shared
// application state every accepted Thread needs.
func NewHandler(pipePath string, maxClients int, cfg Config, mt *track.Tracking, snap Snapshotter, bridgeInfo func() wire.BridgeInfo) *Handler {
	return &Handler{
		newEndpoint: func() (Endpoint, error) { return NewUnixEndpoint(pipePath) },
		maxClients:  maxClients,
		threadCfg:   cfg,
		bridgeInfo:  bridgeInfo,
		snap:        snap,
		mt:          mt,
	}
}

// Start launches the acceptor goroutine (spec.md §4.8 "Start creates
// one acceptor task").
func (h *Handler) Start() {
	if h.running.Load() {
		return
	}
	h.run.Store(true)
	h.acceptWG.Add(1)
	go h.acceptLoop()
}

func (h *Handler) acceptLoop() {
	defer h.acceptWG.Done()
	h.running.Store(true)
	defer h.running.Store(false)

	var ep Endpoint
	defer func() {
		if ep != nil {
			ep.Close()
		}
	}()
	for h.run.Load() {
		if ep == nil {
			created, err := h.newEndpoint()
			if err != nil {
				nlog.Errorf("pipe: failed to create endpoint: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			ep = created
			h.mu.Lock()
			h.endpoint = ep
			h.mu.Unlock()
		}

		h.waiting.Store(true)
		conn, err := ep.Accept()
		h.waiting.Store(false)

		if err != nil {
			if !h.run.Load() {
				return
			}
			nlog.Errorf("pipe: accept failed: %v", err)
			continue
		}
		if !h.run.Load() {
			conn.Close()
			return
		}

		h.admit(conn)
	}
}

// admit implements spec.md §4.8 steps 1-3: reap finished threads,
// then either reject for capacity or construct and start a new Thread.
func (h *Handler) admit(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reapLocked()

	info := h.bridgeInfo()
	if len(h.threads) >= h.maxClients {
		msg := connectionStatusMessage(info, false, "too many clients")
		_ = writeHandshake(conn, msg)
		conn.Close()
		return
	}

	h.nextID++
	th := NewThread(h.nextID, conn, h.mt, h.snap, h.bridgeInfo, h.threadCfg)

	msg := connectionStatusMessage(info, true, "")
	if err := writeHandshake(conn, msg); err != nil {
		nlog.Warningf("pipe: failed to send ConnectionStatus: %v", err)
		conn.Close()
		return
	}

	h.threads = append(h.threads, th)
	th.Start(info.Validator)
}

func connectionStatusMessage(info wire.BridgeInfo, success bool, errMsg string) *wire.Message {
	data := map[string]any{
		"version":         info.Version,
		"majorApiVersion": info.MajorAPIVersion,
		"minorApiVersion": info.MinorAPIVersion,
		"info":            info.ToText(),
		"success":         success,
		"types":           wire.AllTypeNames(),
	}
	if !success {
		data["error"] = errMsg
	}
	return wire.NewInfoMessage(wire.InfoConnectionStatus, wire.ProtocolText, nil, data)
}

func writeHandshake(conn Conn, msg *wire.Message) error {
	raw, err := json.Marshal(msg.Text())
	if err != nil {
		return err
	}
	return conn.WriteMessage(append(raw, 0))
}

// reapLocked drops every thread whose run flag is false, joining it
// first (spec.md §4.8 step 1). Caller holds h.mu.
func (h *Handler) reapLocked() {
	live := h.threads[:0]
	for _, t := range h.threads {
		if t.Running() {
			live = append(live, t)
			continue
		}
		t.Stop()
		nlog.Infof("pipe: reaped closed thread [ptid %d]", t.ID)
	}
	h.threads = live
}

// Reap is exported so a housekeeper task can periodically drop
// finished threads even when no new client is connecting (spec.md
// §4.8 step 1 generalized to an idle-time sweep).
func (h *Handler) Reap() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reapLocked()
}

// SendBridgeInfo broadcasts a revised BridgeInfo to every started
// thread, whatever its protocol (spec.md §4.8, validator-gated in each
// Thread.SendBridgeInfo).
func (h *Handler) SendBridgeInfo(msg *wire.Message, validator uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running.Load() {
		return
	}
	for _, t := range h.threads {
		t.SendBridgeInfo(msg, validator)
	}
}

// SendMessage fans msg out to every thread whose subscription matches
// (spec.md §4.8 "Fan-out").
func (h *Handler) SendMessage(msg *wire.Message) {
	if !msg.Valid() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running.Load() {
		return
	}
	for _, t := range h.threads {
		t.SendMessage(msg)
	}
}

// SendMessages delivers a batch atomically with respect to h.mu (spec.md
// §4.8 sendMessages).
func (h *Handler) SendMessages(msgs ...*wire.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running.Load() {
		return
	}
	for _, msg := range msgs {
		if !msg.Valid() {
			continue
		}
		for _, t := range h.threads {
			t.SendMessage(msg)
		}
	}
}

// IsTrackingCategory exposes the tracker so producers can skip
// encoding when no client cares (spec.md §3 MessageTracking).
func (h *Handler) IsTrackingCategory(cat wire.Category) bool { return h.mt.IsTrackingCategory(cat) }

// Stop unblocks the acceptor, joins it, then stops every live thread
// (spec.md §4.8 Stop).
func (h *Handler) Stop() {
	h.mu.Lock()
	wasRunning := h.running.Load()
	ep := h.endpoint
	h.run.Store(false)
	waiting := h.waiting.Load()
	h.mu.Unlock()

	if wasRunning && waiting && ep != nil {
		unblockAccept(ep)
	}

	h.acceptWG.Wait()

	h.mu.Lock()
	threads := h.threads
	h.threads = nil
	h.mu.Unlock()

	for _, t := range threads {
		t.Stop()
	}
}

// unblockAccept opens and immediately closes a dummy connection to the
// endpoint's address, mirroring the original's CreateFile dummy-connect
// trick to unstick ConnectNamedPipe.
func unblockAccept(ep Endpoint) {
	ue, ok := ep.(*unixEndpoint)
	if !ok {
		return
	}
	c, err := net.Dial("unix", ue.path)
	if err != nil {
		return
	}
	c.Close()
}
