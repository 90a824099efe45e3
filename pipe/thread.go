// PipeThread (spec.md §4.7), grounded on
// original_source/src/PipeThread.{hpp,cpp}: per-client state machine
// running hello -> subscribe -> status -> optional squad snapshot ->
// steady-state send loop -> close, with a bounded, tail-drop queue and
// a cached BridgeInfo validator gate.
package pipe

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/arcbridge/pipebridge/cmn/nlog"
	"github.com/arcbridge/pipebridge/squad"
	"github.com/arcbridge/pipebridge/track"
	"github.com/arcbridge/pipebridge/wire"
)

// Status mirrors PipeThread::Status (spec.md §4.7/§2 table row).
type Status uint8

const (
	StatusNone Status = iota
	StatusWaitingForConnection
	StatusHello
	StatusReading
	StatusWaitingForMessage
	StatusSending
	StatusClosing
)

// Subscription is one client's accepted {mask, protocol} pair (spec.md
// §3 Subscription).
type Subscription struct {
	Combat   bool
	Extras   bool
	Squad    bool
	Protocol wire.Protocol
}

func (s Subscription) any() bool { return s.Combat || s.Extras || s.Squad }

func (s Subscription) subscribes(cat wire.Category) bool {
	switch cat {
	case wire.CategoryCombat:
		return s.Combat
	case wire.CategoryExtras:
		return s.Extras
	case wire.CategorySquad:
		return s.Squad
	default:
		return false
	}
}

// Snapshotter supplies the one-shot Squad snapshot sent on subscribe
// (step 7 of the handshake) without the pipe package depending on the
// squad package's mutation surface.
type Snapshotter interface {
	SelfAccountName() string
	SquadSnapshot() *squad.Container
}

// Thread is one accepted client connection's owner (spec.md §4.7).
type Thread struct {
	ID   uint64
	conn Conn
	mt   *track.Tracking
	snap Snapshotter

	bridgeInfo    func() wire.BridgeInfo
	msgQueueSize  int
	clientTimeout time.Duration

	mu     sync.Mutex
	status Status
	run    bool

	qmu   sync.Mutex
	qcond *sync.Cond
	queue []*wire.Message

	sub             Subscription
	subscribed      bool
	bridgeValidator uint64

	wg sync.WaitGroup
}

// Config bundles the per-thread constants PipeThread reads from
// ApplicationData.Config (spec.md §4.7).
type Config struct {
	MsgQueueSize  int
	ClientTimeout time.Duration
}

func NewThread(id uint64, conn Conn, mt *track.Tracking, snap Snapshotter, bridgeInfo func() wire.BridgeInfo, cfg Config) *Thread {
	t := &Thread{
		ID: id, conn: conn, mt: mt, snap: snap, bridgeInfo: bridgeInfo,
		msgQueueSize: cfg.MsgQueueSize, clientTimeout: cfg.ClientTimeout,
	}
	t.qcond = sync.NewCond(&t.qmu)
	return t
}

func (t *Thread) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Thread) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *Thread) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run
}

// Start runs the handshake and steady-state loop on its own goroutine,
// seeded with the BridgeInfo validator current at accept time (spec.md
// §4.8 step 3).
func (t *Thread) Start(seedValidator uint64) {
	t.mu.Lock()
	t.run = true
	t.bridgeValidator = seedValidator
	t.mu.Unlock()

	t.wg.Add(1)
	go t.loop()
}

// Stop requests the thread to exit and waits for it to finish (spec.md
// §4.7 Shutdown / §4.8 Stop).
func (t *Thread) Stop() {
	t.mu.Lock()
	running := t.run
	t.run = false
	t.mu.Unlock()

	if running {
		// Status() takes t.mu, the only lock status is ever written
		// under (setStatus); qmu guards solely the queue/cond, so the
		// snapshot must happen before qmu is taken, not under it.
		if t.Status() == StatusWaitingForMessage {
			t.qmu.Lock()
			t.queue = append(t.queue, nil) // sentinel empty message
			t.qcond.Signal()
			t.qmu.Unlock()
		}
	}
	t.wg.Wait()
}

func (t *Thread) loop() {
	defer t.wg.Done()
	defer t.conn.Close()
	defer func() {
		t.mu.Lock()
		t.run = false
		t.mu.Unlock()
	}()

	threadID := strconv.FormatUint(t.ID, 10)

	// Step: send BridgeInfo as the connection's "hello" — grounded on
	// the original sending ApplicationData.Info immediately after
	// accept, before reading the client's subscription request.
	t.setStatus(StatusHello)
	info := t.bridgeInfo()
	hello := wire.NewInfoMessage(wire.InfoBridgeInfo, wire.ProtocolText, nil, info.ToText())
	if err := t.write(hello); err != nil {
		nlog.Warningf("pipe: [ptid %s] failed to send bridge info: %v", threadID, err)
		return
	}
	t.mu.Lock()
	t.bridgeValidator = info.Validator
	t.mu.Unlock()

	t.setStatus(StatusReading)
	raw, err := t.conn.ReadMessage()
	if err != nil {
		nlog.Warningf("pipe: [ptid %s] failed to read subscription: %v", threadID, err)
		return
	}

	sub, ok := parseSubscription(raw)
	if !ok || !sub.any() {
		t.writeStatus(false, "no subscription")
		nlog.Errorf("pipe: [ptid %s] invalid or empty subscription", threadID)
		return
	}

	t.mu.Lock()
	t.sub = sub
	t.subscribed = true
	t.mu.Unlock()
	if sub.Combat {
		t.mt.TrackEvent(wire.CategoryCombat)
	}
	if sub.Extras {
		t.mt.TrackEvent(wire.CategoryExtras)
	}
	if sub.Squad {
		t.mt.TrackEvent(wire.CategorySquad)
	}
	t.mt.UseProtocol(sub.Protocol)

	if err := t.writeStatus(true, ""); err != nil {
		nlog.Warningf("pipe: [ptid %s] failed to send status: %v", threadID, err)
	}

	if sub.Squad {
		t.sendSquadSnapshot(sub.Protocol)
	}

	t.steadyState(threadID)
}

func parseSubscription(raw string) (Subscription, bool) {
	var req struct {
		Subscribe int    `json:"subscribe"`
		Protocol  string `json:"protocol"`
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return Subscription{}, false
	}
	proto, ok := wire.ParseProtocol(req.Protocol)
	if !ok {
		return Subscription{}, false
	}
	mask := wire.Category(req.Subscribe)
	return Subscription{
		Combat:   mask&wire.CategoryCombat != 0,
		Extras:   mask&wire.CategoryExtras != 0,
		Squad:    mask&wire.CategorySquad != 0,
		Protocol: proto,
	}, true
}

func (t *Thread) writeStatus(success bool, errMsg string) error {
	data := map[string]any{"success": success}
	if !success {
		data["error"] = errMsg
	}
	m := wire.NewInfoMessage(wire.InfoStatus, wire.ProtocolText, nil, data)
	return t.write(m)
}

func (t *Thread) sendSquadSnapshot(proto wire.Protocol) {
	c := t.snap.SquadSnapshot()
	var m *wire.Message
	switch proto {
	case wire.ProtocolBinary:
		m = wire.NewSquadMessage(wire.SquadStatusType, proto, c.ToSerial(0), nil)
	default:
		data := map[string]any{"self": t.snap.SelfAccountName(), "squad": c.ToText()}
		m = wire.NewSquadMessage(wire.SquadStatusType, proto, nil, data)
	}
	if err := t.write(m); err != nil {
		nlog.Warningf("pipe: [ptid %d] failed to send squad snapshot: %v", t.ID, err)
	}
}

// steadyState is the dequeue/send loop (spec.md §4.7 "Steady-state
// loop, per tick").
func (t *Thread) steadyState(threadID string) {
	disconnected := false
	for t.Running() {
		t.setStatus(StatusWaitingForMessage)

		msg, ok := t.waitForMessage()
		if !ok {
			disconnected = true
			break
		}
		if msg == nil {
			continue // sentinel, used to wake a blocked waiter at shutdown
		}

		t.setStatus(StatusSending)
		if err := t.write(msg); err != nil {
			nlog.Warningf("pipe: [ptid %s] write failed: %v", threadID, err)
			if err == ErrBrokenPipe {
				disconnected = true
				break
			}
		}
	}

	t.setStatus(StatusClosing)
	if !disconnected {
		closing := wire.NewInfoMessage(wire.InfoClosing, t.sub.Protocol, nil, map[string]any{"type": "closing"})
		_ = t.write(closing)
	}
	t.untrack()
	t.setStatus(StatusNone)
}

// waitForMessage blocks for clientTimeout, periodically probing the
// connection on spurious/timed-out wakes (spec.md §4.7). ok is false
// when the client has disconnected.
func (t *Thread) waitForMessage() (msg *wire.Message, ok bool) {
	t.qmu.Lock()
	defer t.qmu.Unlock()

	for len(t.queue) == 0 {
		woke := waitWithTimeout(t.qcond, t.clientTimeout)
		if len(t.queue) > 0 {
			break
		}
		if !woke {
			if err := t.conn.Probe(); err != nil {
				return nil, false
			}
		}
		if !t.Running() {
			return nil, true
		}
	}

	msg = t.queue[0]
	t.queue = t.queue[1:]
	return msg, true
}

// waitWithTimeout waits on cond (caller holds its Locker) for up to d,
// returning true if signaled before the deadline.
func waitWithTimeout(cond *sync.Cond, d time.Duration) bool {
	done := make(chan struct{})
	timer := time.AfterFunc(d, func() {
		cond.L.Lock()
		close(done)
		cond.Signal()
		cond.L.Unlock()
	})
	cond.Wait()
	select {
	case <-done:
		timer.Stop()
		return false
	default:
		timer.Stop()
		return true
	}
}

func (t *Thread) untrack() {
	t.mt.UnuseProtocol(t.sub.Protocol)
	if t.sub.Combat {
		t.mt.UntrackEvent(wire.CategoryCombat)
	}
	if t.sub.Extras {
		t.mt.UntrackEvent(wire.CategoryExtras)
	}
	if t.sub.Squad {
		t.mt.UntrackEvent(wire.CategorySquad)
	}
}

// write picks the wire form matching the thread's chosen protocol and
// writes it synchronously.
func (t *Thread) write(m *wire.Message) error {
	switch t.currentProtocol(m) {
	case wire.ProtocolBinary:
		return t.conn.WriteMessage(m.Binary())
	default:
		raw, err := json.Marshal(m.Text())
		if err != nil {
			return err
		}
		return t.conn.WriteMessage(append(raw, 0))
	}
}

// currentProtocol resolves which encoding to write: before a
// subscription is committed, handshake messages are always sent as
// text (spec.md §4.7 step 1); afterward, the client's chosen protocol
// applies, except that a message carrying no binary encoding (Status,
// Closing, BridgeInfo) is sent as text.
func (t *Thread) currentProtocol(m *wire.Message) wire.Protocol {
	if !t.subscribed || !m.HasBinary() {
		return wire.ProtocolText
	}
	return t.sub.Protocol
}

// SendBridgeInfo enqueues msg only if v exceeds the cached validator,
// then caches v (spec.md §4.7 "BridgeInfo validator").
func (t *Thread) SendBridgeInfo(msg *wire.Message, v uint64) {
	t.mu.Lock()
	if v <= t.bridgeValidator {
		t.mu.Unlock()
		return
	}
	t.bridgeValidator = v
	t.mu.Unlock()

	t.enqueue(msg)
}

// SendMessage enqueues msg if this thread's subscription matches its
// category and protocol (spec.md §4.8 fan-out). Mirrors
// PipeThread::sendMessage, which takes m_mutex before reading
// m_eventTrack.
func (t *Thread) SendMessage(msg *wire.Message) {
	t.mu.Lock()
	send := t.subscribed && t.sub.subscribes(msg.Category) && t.sub.Protocol == msg.Protocol
	t.mu.Unlock()
	if !send {
		return
	}
	t.enqueue(msg)
}

// enqueue applies the bounded tail-drop policy (spec.md §4.7 "Queue
// policy").
func (t *Thread) enqueue(msg *wire.Message) {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	if len(t.queue) >= t.msgQueueSize {
		nlog.Warningf("pipe: [ptid %d] queue full, dropping message", t.ID)
		return
	}
	t.queue = append(t.queue, msg)
	t.qcond.Signal()
}
