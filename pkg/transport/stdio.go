package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

// StdioTransport is the subprocess pipe transport. It owns the subprocess
// lifecycle: messages are newline-delimited JSON over the child's stdin and
// stdout, stderr is drained as a diagnostic side channel, and process exit
// surfaces as an unsolicited Closed event.
type StdioTransport struct {
	base
	cfg Config

	mu      sync.Mutex
	cmd     *exec.Cmd
	writer  *bufio.Writer
	writeMu sync.Mutex
	done    chan struct{}
}

func newStdioTransport(cfg Config) *StdioTransport {
	return &StdioTransport{
		base: newBase(cfg),
		cfg:  cfg,
	}
}

// Open spawns the subprocess (or attaches to the injected test pipes) and
// starts the reader loops. Concurrent calls coalesce into a single spawn.
func (t *StdioTransport) Open(ctx context.Context) error {
	return t.gate.do(ctx, func() error {
		ch := t.freshChannels()
		done := make(chan struct{})

		if t.cfg.StdioReader != nil && t.cfg.StdioWriter != nil {
			// Injected pipes: no subprocess to manage.
			t.mu.Lock()
			t.cmd = nil
			t.writer = bufio.NewWriter(t.cfg.StdioWriter)
			t.done = done
			t.mu.Unlock()
			go t.runPipes(t.cfg.StdioReader, nil, nil, done, ch)
			ch.emit(Event{Kind: EventOpened})
			return nil
		}

		cmd := exec.Command(t.cfg.Command[0], t.cfg.Command[1:]...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return mcperrors.ConnectionFailed(string(TypeStdio), t.cfg.Command[0], err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return mcperrors.ConnectionFailed(string(TypeStdio), t.cfg.Command[0], err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return mcperrors.ConnectionFailed(string(TypeStdio), t.cfg.Command[0], err)
		}
		if err := cmd.Start(); err != nil {
			return mcperrors.ConnectionFailed(string(TypeStdio), t.cfg.Command[0], err)
		}

		t.mu.Lock()
		t.cmd = cmd
		t.writer = bufio.NewWriter(stdin)
		t.done = done
		t.mu.Unlock()

		go t.runPipes(stdout, stderr, cmd, done, ch)

		ch.emit(Event{Kind: EventOpened})
		return nil
	})
}

// runPipes drains stdout into the message channel and stderr into the
// diagnostic log until the process exits or the transport is closed.
func (t *StdioTransport) runPipes(stdout io.Reader, stderr io.Reader, cmd *exec.Cmd, done chan struct{}, ch *chans) {
	g := new(errgroup.Group)

	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			select {
			case <-done:
				return nil
			default:
			}
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			data := make([]byte, len(line))
			copy(data, line)
			ch.deliver(data)
		}
		return scanner.Err()
	})

	if stderr != nil {
		g.Go(func() error {
			scanner := bufio.NewScanner(stderr)
			for scanner.Scan() {
				t.logger.Debug("subprocess stderr", slog.String("line", scanner.Text()))
			}
			// Stderr is diagnostics only; read errors are not protocol errors.
			return nil
		})
	}

	err := g.Wait()
	if cmd != nil {
		if waitErr := cmd.Wait(); waitErr != nil && err == nil {
			err = waitErr
		}
	}

	select {
	case <-done:
		// Solicited close.
		ch.emitClosed(nil)
	default:
		// Process exit (or pipe EOF) without a Close call.
		ch.emitClosed(mcperrors.ConnectionLost(string(TypeStdio), err))
		t.teardown(false)
	}
}

// Send writes one message followed by a newline and flushes.
func (t *StdioTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	writer := t.writer
	t.mu.Unlock()
	if writer == nil || !t.gate.isOpen() {
		return mcperrors.TransportClosed(string(TypeStdio))
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := writer.Write(data); err != nil {
		return mcperrors.SendFailed(string(TypeStdio), err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return mcperrors.SendFailed(string(TypeStdio), err)
	}
	if err := writer.Flush(); err != nil {
		return mcperrors.SendFailed(string(TypeStdio), err)
	}
	return nil
}

// Close signals the reader loops, terminates the subprocess if still
// running, and shuts the channels down. Safe to call repeatedly.
func (t *StdioTransport) Close() error {
	t.teardown(true)
	t.channels().shutdown()
	return nil
}

func (t *StdioTransport) teardown(kill bool) {
	t.mu.Lock()
	cmd := t.cmd
	done := t.done
	t.cmd = nil
	t.writer = nil
	t.done = nil
	t.mu.Unlock()

	if done != nil {
		close(done)
	}
	if kill && cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	if kill && cmd == nil && done != nil {
		// Injected pipes have no process whose exit unblocks the scanner;
		// close the reader directly so the loop can finish.
		if rc, ok := t.cfg.StdioReader.(io.Closer); ok {
			_ = rc.Close()
		}
	}
	t.gate.reset()
}
