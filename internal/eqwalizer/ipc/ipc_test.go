package ipc

import (
	"bytes"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newTestHandle(child string) (*Handle, *bytes.Buffer) {
	var sent bytes.Buffer

	h := NewHandle(nopWriteCloser{&sent}, strings.NewReader(child))

	return h, &sent
}

func TestHandle_SendFraming(t *testing.T) {
	t.Parallel()

	h, sent := newTestHandle("")

	require.NoError(t, h.Send(GetAstBytesReply{AstBytesLen: 3}))

	line := sent.String()
	assert.True(t, strings.HasSuffix(line, "\n"), "record must be newline-terminated")
	assert.JSONEq(t, `{"tag":"GetAstBytesReply","ast_bytes_len":3}`, strings.TrimSuffix(line, "\n"))
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestHandle_SendBytesUnframed(t *testing.T) {
	t.Parallel()

	h, sent := newTestHandle("")

	payload := []byte{0x83, 0x00, 0x0A, 0xFF}
	require.NoError(t, h.SendBytes(payload))

	assert.Equal(t, payload, sent.Bytes())
}

func TestHandle_Receive(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandle(`{"tag":"EqwalizingStart","module":"m"}` + "\n")

	msg, err := h.Receive()
	require.NoError(t, err)
	assert.Equal(t, EqwalizingStart{Module: "m"}, msg)
}

func TestHandle_ReceiveEOF(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandle("")

	_, err := h.Receive()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestHandle_ReceiveTruncatedLine(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandle(`{"tag":"Done"}`)

	_, err := h.Receive()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestHandle_ReceiveNewline(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandle("\n")
	require.NoError(t, h.ReceiveNewline())
}

func TestHandle_ReceiveNewlineRejectsPayload(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandle("ok\n")
	require.ErrorIs(t, h.ReceiveNewline(), ErrStrayAck)
}

type closeCounter struct {
	io.Writer

	closes int
}

func (c *closeCounter) Close() error {
	c.closes++

	return nil
}

func TestHandle_CloseIdempotent(t *testing.T) {
	t.Parallel()

	stdin := &closeCounter{Writer: io.Discard}
	h := NewHandle(stdin, strings.NewReader(""))

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 1, stdin.closes)
}

func TestSharedHandle_MutualExclusion(t *testing.T) {
	t.Parallel()

	shared := NewShared(NewHandle(nopWriteCloser{io.Discard}, strings.NewReader("")))

	var (
		wg   sync.WaitGroup
		busy atomic.Bool
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			shared.Acquire()
			defer shared.Release()

			// Exactly one holder may be inside the critical section.
			assert.True(t, busy.CompareAndSwap(false, true))
			runtime.Gosched()
			busy.Store(false)
		}()
	}

	wg.Wait()
}
