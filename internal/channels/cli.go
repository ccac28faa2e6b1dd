// Package channels provides runtime.Listener implementations for each supported input channel.
package channels

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/llamachat/toolchat/internal/runtime"
)

const (
	defaultReplPrompt = "you> "
	replHistoryLimit  = 200
)

var _ runtime.Listener = (*CLIListener)(nil)

var (
	notifyInterrupt = func(c chan<- os.Signal) { signal.Notify(c, os.Interrupt) }
	stopInterrupt   = signal.Stop
)

// CLIWriter writes assistant responses to terminal output.
type CLIWriter struct {
	out io.Writer
}

// WriteMessage writes one assistant message line.
func (w *CLIWriter) WriteMessage(_ context.Context, text string) error {
	_, err := fmt.Fprintf(w.out, "assistant> %s\n\n", text)
	return err
}

// CLIOptions configures a CLIListener.
type CLIOptions struct {
	// HistoryFile persists readline history. Empty disables persistence.
	HistoryFile string
	// TurnTimeout bounds each turn. Zero means no limit.
	TurnTimeout time.Duration
	// Banner replaces the default greeting line.
	Banner string
	// CancelOnInterrupt makes SIGINT stop the running turn instead of the
	// process. Between turns SIGINT keeps its default behavior.
	CancelOnInterrupt bool
}

// CLIListener reads terminal input and runs one turn per line.
type CLIListener struct {
	in   io.Reader
	out  io.Writer
	opts CLIOptions

	rl       *readline.Instance
	fallback *bufio.Reader
}

// NewCLI creates a new CLI listener over stdin/stdout style streams.
func NewCLI(in io.Reader, out io.Writer, opts CLIOptions) *CLIListener {
	return &CLIListener{in: in, out: out, opts: opts}
}

// Listen runs the interactive loop until EOF, /quit, /exit, or context cancellation.
// Turns run synchronously: the next prompt appears once the reply is written.
func (c *CLIListener) Listen(ctx context.Context, handler runtime.Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	runner, err := runtime.NewRunner(handler, c.opts.TurnTimeout)
	if err != nil {
		return err
	}
	c.ensureInputReady()
	if c.rl != nil {
		defer c.rl.Close()
	}

	banner := c.opts.Banner
	if banner == "" {
		banner = "Interactive mode. Type /help for commands, /quit or /exit to stop."
	}
	if _, err := fmt.Fprintln(c.out, banner); err != nil {
		return err
	}

	writer := &CLIWriter{out: c.out}
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "/quit", "quit", "/exit", "exit":
			return writer.WriteMessage(ctx, "Goodbye.")
		}

		release := c.watchInterrupt(runner)
		err = runner.Run(ctx, writer, &runtime.Message{Text: line})
		release()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// watchInterrupt cancels the current turn on SIGINT until release is called.
func (c *CLIListener) watchInterrupt(runner *runtime.Runner) (release func()) {
	if !c.opts.CancelOnInterrupt {
		return func() {}
	}
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	notifyInterrupt(sig)
	go func() {
		select {
		case <-sig:
			runner.Cancel()
		case <-done:
		}
	}()
	return func() {
		stopInterrupt(sig)
		close(done)
	}
}

func (c *CLIListener) ensureInputReady() {
	if c.rl != nil || c.fallback != nil {
		return
	}
	rl, err := newReadline(c.in, c.out, c.opts.HistoryFile)
	if err == nil {
		c.rl = rl
		return
	}
	c.fallback = bufio.NewReader(c.in)
}

func (c *CLIListener) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.rl != nil {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", err
		}
		return line, nil
	}

	if _, err := fmt.Fprint(c.out, defaultReplPrompt); err != nil {
		return "", err
	}
	line, err := c.fallback.ReadString('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// newReadline only succeeds when both streams are terminals.
func newReadline(in io.Reader, out io.Writer, historyFile string) (*readline.Instance, error) {
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return nil, fmt.Errorf("stdin is not terminal")
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return nil, fmt.Errorf("stdout is not terminal")
	}

	return readline.NewEx(&readline.Config{
		Prompt:          defaultReplPrompt,
		HistoryFile:     historyFile,
		HistoryLimit:    replHistoryLimit,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           inFile,
		Stdout:          out,
		Stderr:          out,
	})
}
