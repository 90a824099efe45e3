package cos

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrsAccumulatesDistinct(t *testing.T) {
	var e Errs
	e.Add(errors.New("boom"))
	e.Add(errors.New("boom"))
	e.Add(errors.New("bang"))
	assert.Equal(t, 2, e.Cnt())
	assert.Error(t, e.Err())
}

func TestErrsCapsAtMax(t *testing.T) {
	var e Errs
	for i := 0; i < maxErrs+4; i++ {
		e.Add(errors.New(string(rune('a' + i))))
	}
	assert.Equal(t, maxErrs, e.Cnt())
}

func TestIsErrBrokenPipe(t *testing.T) {
	assert.True(t, IsErrBrokenPipe(io.EOF))
	assert.True(t, IsErrBrokenPipe(io.ErrClosedPipe))
	assert.True(t, IsErrBrokenPipe(net.ErrClosed))
	assert.False(t, IsErrBrokenPipe(nil))
}
