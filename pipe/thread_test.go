package pipe

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/arcbridge/pipebridge/squad"
	"github.com/arcbridge/pipebridge/track"
	"github.com/arcbridge/pipebridge/wire"
)

// fakeConn is an in-memory Conn for exercising Thread without a real
// socket: reads come from a preloaded queue, writes are recorded.
type fakeConn struct {
	mu       sync.Mutex
	reads    []string
	writes   [][]byte
	closed   bool
	probeErr error
}

func (f *fakeConn) ReadMessage() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		return "", errEOF
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	return r, nil
}

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeConn) Probe() error { return f.probeErr }
func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

var errEOF = &eofError{}

type eofError struct{}

func (*eofError) Error() string { return "fake: no more reads queued" }

type fakeSnapshotter struct{ c *squad.Container }

func (f fakeSnapshotter) SelfAccountName() string         { return "self.1" }
func (f fakeSnapshotter) SquadSnapshot() *squad.Container { return f.c }

func testBridgeInfo() wire.BridgeInfo {
	return wire.BridgeInfo{Version: "1.0", Validator: 1, MajorAPIVersion: 1, MinorAPIVersion: 0}
}

func TestThreadHandshakeSuccess(t *testing.T) {
	conn := &fakeConn{reads: []string{`{"subscribe":2,"protocol":"Text"}`}}
	mt := track.New()
	th := NewThread(1, conn, mt, fakeSnapshotter{squad.New()}, testBridgeInfo, Config{MsgQueueSize: 4, ClientTimeout: 20 * time.Millisecond})

	th.Start(0)
	th.Stop()

	if conn.writeCount() < 2 {
		t.Fatalf("expected at least hello+status writes, got %d", conn.writeCount())
	}
	var status map[string]any
	if err := json.Unmarshal(trimNUL(conn.writes[1]), &status); err != nil {
		t.Fatal(err)
	}
	if status["data"].(map[string]any)["success"] != true {
		t.Fatalf("expected success status, got %v", status)
	}
	if mt.IsTrackingCategory(wire.CategoryCombat) {
		t.Fatalf("expected untracked after stop")
	}
}

func trimNUL(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == 0 {
		return b[:len(b)-1]
	}
	return b
}

func TestThreadNoSubscriptionSendsFailureStatus(t *testing.T) {
	conn := &fakeConn{reads: []string{`{"subscribe":0,"protocol":"Text"}`}}
	mt := track.New()
	th := NewThread(1, conn, mt, fakeSnapshotter{squad.New()}, testBridgeInfo, Config{MsgQueueSize: 4, ClientTimeout: 20 * time.Millisecond})

	th.Start(0)
	th.Stop()

	var env map[string]any
	if err := json.Unmarshal(trimNUL(conn.writes[len(conn.writes)-1]), &env); err != nil {
		t.Fatal(err)
	}
	data := env["data"].(map[string]any)
	if data["success"] != false || data["error"] != "no subscription" {
		t.Fatalf("expected failure status, got %v", env)
	}
}

func TestThreadSendMessageRespectsSubscription(t *testing.T) {
	conn := &fakeConn{reads: []string{`{"subscribe":2,"protocol":"Text"}`}}
	mt := track.New()
	th := NewThread(1, conn, mt, fakeSnapshotter{squad.New()}, testBridgeInfo, Config{MsgQueueSize: 4, ClientTimeout: 20 * time.Millisecond})
	th.Start(0)

	combat := wire.NewCombatMessage(wire.CombatEventType, wire.ProtocolText, nil, map[string]any{"x": 1})
	squadMsg := wire.NewSquadMessage(wire.SquadAddType, wire.ProtocolText, nil, map[string]any{"x": 1})

	before := conn.writeCount()
	th.SendMessage(squadMsg) // not subscribed to squad, should be dropped
	th.SendMessage(combat)   // subscribed to combat, should be delivered

	deadline := time.Now().Add(time.Second)
	for conn.writeCount() == before && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	th.Stop()

	if conn.writeCount() <= before {
		t.Fatalf("expected combat message to be written")
	}
}

func TestThreadQueueTailDrop(t *testing.T) {
	conn := &fakeConn{reads: []string{`{"subscribe":2,"protocol":"Text"}`}}
	mt := track.New()
	th := NewThread(1, conn, mt, fakeSnapshotter{squad.New()}, testBridgeInfo, Config{MsgQueueSize: 1, ClientTimeout: time.Second})

	th.mu.Lock()
	th.subscribed = true
	th.sub = Subscription{Combat: true, Protocol: wire.ProtocolText}
	th.mu.Unlock()

	m1 := wire.NewCombatMessage(wire.CombatEventType, wire.ProtocolText, nil, map[string]any{"n": 1})
	m2 := wire.NewCombatMessage(wire.CombatEventType, wire.ProtocolText, nil, map[string]any{"n": 2})
	m3 := wire.NewCombatMessage(wire.CombatEventType, wire.ProtocolText, nil, map[string]any{"n": 3})

	th.SendMessage(m1)
	th.SendMessage(m2) // dropped: queue already at MsgQueueSize=1
	th.SendMessage(m3) // dropped

	th.qmu.Lock()
	n := len(th.queue)
	th.qmu.Unlock()
	if n != 1 {
		t.Fatalf("expected queue capped at 1, got %d", n)
	}
}

func TestBridgeInfoValidatorGating(t *testing.T) {
	conn := &fakeConn{reads: []string{`{"subscribe":2,"protocol":"Text"}`}}
	mt := track.New()
	th := NewThread(1, conn, mt, fakeSnapshotter{squad.New()}, testBridgeInfo, Config{MsgQueueSize: 4, ClientTimeout: time.Second})
	th.bridgeValidator = 5

	m := wire.NewInfoMessage(wire.InfoBridgeInfo, wire.ProtocolText, nil, map[string]any{})
	th.SendBridgeInfo(m, 5) // not greater, should be ignored
	th.qmu.Lock()
	n := len(th.queue)
	th.qmu.Unlock()
	if n != 0 {
		t.Fatalf("expected no enqueue for non-increasing validator, got %d", n)
	}

	th.SendBridgeInfo(m, 6)
	th.qmu.Lock()
	n = len(th.queue)
	th.qmu.Unlock()
	if n != 1 {
		t.Fatalf("expected one enqueue for increasing validator, got %d", n)
	}
}
