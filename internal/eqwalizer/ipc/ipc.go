// Package ipc implements the framed stdio transport between the driver and
// the eqWAlizer child process.
//
// Framing is a hybrid: control messages are single-line JSON records
// terminated by a newline, while AST payloads are raw byte runs whose length
// was announced in the preceding GetAstBytesReply and whose transmission the
// child green-lights with a bare newline.
package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ErrUnexpectedEOF indicates the child closed its side mid-protocol.
var ErrUnexpectedEOF = errors.New("unexpected EOF from eqwalizer")

// ErrStrayAck indicates the child sent payload where a bare newline
// acknowledgement was expected.
var ErrStrayAck = errors.New("expected bare newline acknowledgement")

// Handle owns one side of the child's stdio. All I/O is blocking; the driver
// sends at most one request at a time and reads replies in order.
type Handle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	closeOnce sync.Once
	closeErr  error
}

// FromCommand spawns cmd with piped stdin/stdout and wraps the pipes in a
// Handle. The child's stderr is passed through to the driver's.
func FromCommand(cmd *exec.Cmd) (*Handle, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	startErr := cmd.Start()
	if startErr != nil {
		return nil, fmt.Errorf("start child: %w", startErr)
	}

	return &Handle{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}, nil
}

// NewHandle wraps an existing transport. Used by tests to script the child
// over in-memory pipes.
func NewHandle(stdin io.WriteCloser, stdout io.Reader) *Handle {
	return &Handle{stdin: stdin, stdout: bufio.NewReader(stdout)}
}

// Send serializes msg as a single newline-terminated record.
func (h *Handle) Send(msg MsgToEqwalizer) error {
	data, err := encodeMsg(msg)
	if err != nil {
		return err
	}

	data = append(data, '\n')

	_, writeErr := h.stdin.Write(data)
	if writeErr != nil {
		return fmt.Errorf("send to eqwalizer: %w", writeErr)
	}

	return nil
}

// SendBytes writes buf verbatim, with no framing.
func (h *Handle) SendBytes(buf []byte) error {
	_, err := h.stdin.Write(buf)
	if err != nil {
		return fmt.Errorf("send bytes to eqwalizer: %w", err)
	}

	return nil
}

// Receive reads and decodes one newline-terminated record from the child.
func (h *Handle) Receive() (MsgFromEqwalizer, error) {
	line, err := h.readLine()
	if err != nil {
		return nil, err
	}

	return decodeMsg(line)
}

// ReceiveNewline consumes the child's bare newline acknowledgement sent
// between a GetAstBytesReply and the raw payload.
func (h *Handle) ReceiveNewline() error {
	line, err := h.readLine()
	if err != nil {
		return err
	}

	if len(line) != 0 {
		return fmt.Errorf("%w, got %q", ErrStrayAck, line)
	}

	return nil
}

func (h *Handle) readLine() ([]byte, error) {
	line, err := h.stdout.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrUnexpectedEOF
		}

		return nil, fmt.Errorf("receive from eqwalizer: %w", err)
	}

	// Strip the terminator; the child does not send \r.
	return line[:len(line)-1], nil
}

// Close shuts the child's stdin so it terminates, then reaps it in the
// background. Safe to call more than once. There is no shutdown message in
// the protocol; closing the pipe is the shutdown.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.stdin.Close()

		if h.cmd != nil {
			cmd := h.cmd
			go func() { _ = cmd.Wait() }()
		}
	})

	return h.closeErr
}
