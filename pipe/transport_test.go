package pipe

import (
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestUnixEndpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.sock")

	ep, err := NewUnixEndpoint(path)
	if err != nil {
		t.Fatalf("NewUnixEndpoint: %v", err)
	}
	defer ep.Close()

	type result struct {
		conn Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ep.Accept()
		accepted <- result{c, err}
	}()

	client, err := dialUnix(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	r := <-accepted
	if r.err != nil {
		t.Fatalf("Accept: %v", r.err)
	}
	server := r.conn
	defer server.Close()

	if err := client.WriteMessage(append([]byte("hello"), 0)); err != nil {
		t.Fatalf("client write: %v", err)
	}
	msg, err := server.ReadMessage()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if msg != "hello" {
		t.Fatalf("expected %q, got %q", "hello", msg)
	}

	if err := server.WriteMessage(append([]byte("world"), 0)); err != nil {
		t.Fatalf("server write: %v", err)
	}
	reply, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if reply != "world" {
		t.Fatalf("expected %q, got %q", "world", reply)
	}
}

func TestUnixConnProbeDetectsClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.sock")

	ep, err := NewUnixEndpoint(path)
	if err != nil {
		t.Fatalf("NewUnixEndpoint: %v", err)
	}
	defer ep.Close()

	accepted := make(chan Conn, 1)
	go func() {
		c, _ := ep.Accept()
		accepted <- c
	}()

	client, err := dialUnix(path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	server := <-accepted
	client.Close()

	deadline := time.Now().Add(time.Second)
	var probeErr error
	for time.Now().Before(deadline) {
		probeErr = server.Probe()
		if probeErr != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	server.Close()
	if probeErr != ErrBrokenPipe {
		t.Fatalf("expected ErrBrokenPipe after client close, got %v", probeErr)
	}
}

// dialUnix connects a Conn to path, used only by tests to play the
// client side of unixEndpoint.
func dialUnix(path string) (Conn, error) {
	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &unixConn{c: c}, nil
}
