// Package pipe implements the per-client state machine (PipeThread,
// spec.md §4.7) and the accept loop / fan-out (PipeHandler, spec.md
// §4.8). The named-pipe endpoint itself is an external collaborator
// per spec.md §1 ("platform-specific named-pipe primitives beyond the
// abstract operations listed in §6") — duplex, message-oriented,
// unlimited instances up to maxClients. Go's standard net package
// already expresses that surface portably via Unix domain sockets
// (SOCK_STREAM, one listener, unbounded accepted connections), so
// Endpoint below wraps net.Listener/net.Conn rather than reaching for
// a third-party transport library: no example in the retrieved corpus
// implements local named-pipe or domain-socket service, and this is
// exactly the "abstract operations" substrate the spec carves out as
// out of scope.
package pipe

import (
	"errors"
	"io"
	"net"
	"os"

	"github.com/arcbridge/pipebridge/cmn/cos"
)

// Endpoint is the abstract named-pipe server: one listener producing
// duplex, message-oriented connections.
type Endpoint interface {
	Accept() (Conn, error)
	Close() error
}

// Conn is one accepted client connection: read one framed request,
// write one framed message, and a best-effort disconnect probe
// (PeekNamedPipe's abstract equivalent).
type Conn interface {
	io.Closer
	ReadMessage() (string, error)
	WriteMessage(data []byte) error
	Probe() error
}

// unixEndpoint serves Conn over a Unix domain socket rooted at path.
type unixEndpoint struct {
	path string
	ln   net.Listener
}

// NewUnixEndpoint creates (or recreates) the socket at path and starts
// listening. The acceptor opens it once and accepts every client from
// it; each accepted Conn plays the part of the original's per-client
// CreateNamedPipe instance.
func NewUnixEndpoint(path string) (Endpoint, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &unixEndpoint{path: path, ln: ln}, nil
}

func (e *unixEndpoint) Accept() (Conn, error) {
	c, err := e.ln.Accept()
	if err != nil {
		return nil, err
	}
	return &unixConn{c: c}, nil
}

func (e *unixEndpoint) Close() error {
	err := e.ln.Close()
	_ = os.Remove(e.path)
	return err
}

// unixConn frames requests/messages with a trailing NUL, matching the
// original's null-terminated TCHAR buffer read and raw string write.
type unixConn struct {
	c   net.Conn
	buf []byte
}

const readChunk = 512

// ReadMessage reads until a NUL terminator, mirroring ReadFromPipe's
// accumulate-until-short-read loop (here: accumulate until the
// delimiter appears).
func (u *unixConn) ReadMessage() (string, error) {
	for {
		if i := indexByte(u.buf, 0); i >= 0 {
			msg := string(u.buf[:i])
			u.buf = u.buf[i+1:]
			return msg, nil
		}
		chunk := make([]byte, readChunk)
		n, err := u.c.Read(chunk)
		if n > 0 {
			u.buf = append(u.buf, chunk[:n]...)
		}
		if err != nil {
			if cos.IsErrBrokenPipe(err) {
				return "", ErrBrokenPipe
			}
			return "", err
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// WriteMessage mirrors WriteToPipe: a single synchronous write of the
// whole frame.
func (u *unixConn) WriteMessage(data []byte) error {
	_, err := u.c.Write(data)
	if err != nil && cos.IsErrBrokenPipe(err) {
		return ErrBrokenPipe
	}
	return err
}

// Probe is the peek-on-idle heartbeat's disconnect check (spec.md
// §4.7): a zero-byte write fails with a broken-pipe error once the
// peer has closed its end and succeeds otherwise, the same distinction
// PeekNamedPipe's error code makes.
func (u *unixConn) Probe() error {
	if len(u.buf) > 0 {
		return nil
	}
	if _, err := u.c.Write([]byte{}); err != nil && cos.IsErrBrokenPipe(err) {
		return ErrBrokenPipe
	}
	return nil
}

// ErrBrokenPipe is returned by Probe and by Write/ReadMessage failures
// that indicate the client is gone, mirroring the original's
// ERROR_BROKEN_PIPE / ERROR_NO_DATA checks.
var ErrBrokenPipe = errors.New("pipe: broken pipe")

func (u *unixConn) Close() error { return u.c.Close() }
