package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 5 * time.Second
	pollInterval   = 25 * time.Millisecond
)

// Step is one scripted interaction. The harness sleeps for Delay, then
// waits until the screen shows WaitFor (if set), then writes Input.
type Step struct {
	Delay   time.Duration
	WaitFor string
	Input   []byte
}

// Config describes the program to spawn and how to drive it.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

// Recording is the raw terminal stream plus the frames parsed from it.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// screen collects program output while steps poll it.
type screen struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *screen) shows(text string) bool {
	s.mu.Lock()
	raw := s.buf.String()
	s.mu.Unlock()
	return strings.Contains(stripANSI(raw), text)
}

func (s *screen) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

// Run starts cfg.Command inside a PTY, replays the steps and records
// everything the program draws until it exits.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cfg = withDefaults(cfg)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	out := &screen{}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		r := newResponder(ptmx)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				r.Process(buf[:n])
				_, _ = out.Write(buf[:n])
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	for i, step := range cfg.Steps {
		if err := play(ctx, ptmx, out, step); err != nil {
			return nil, fmt.Errorf("tuitest: step %d: %w", i, err)
		}
	}

	if err := awaitExit(ctx, cmd, cfg); err != nil {
		return nil, err
	}

	_ = ptmx.Close()
	<-drained

	raw := out.bytes()
	return &Recording{Raw: raw, Frames: parseFrames(raw), Duration: time.Since(start)}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

func play(ctx context.Context, w *os.File, out *screen, step Step) error {
	if step.Delay > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("script interrupted: %w", ctx.Err())
		case <-time.After(step.Delay):
		}
	}
	if step.WaitFor != "" {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for !out.shows(step.WaitFor) {
			select {
			case <-ctx.Done():
				return fmt.Errorf("screen never showed %q: %w", step.WaitFor, ctx.Err())
			case <-ticker.C:
			}
		}
	}
	if len(step.Input) == 0 {
		return nil
	}
	if _, err := w.Write(step.Input); err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	return nil
}

func awaitExit(ctx context.Context, cmd *exec.Cmd, cfg Config) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil || exitAllowed(err, cfg) {
			return nil
		}
		return fmt.Errorf("tuitest: program exited with error: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}
}

func exitAllowed(err error, cfg Config) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		for _, code := range cfg.AllowedExitCodes {
			if exitErr.ExitCode() == code {
				return true
			}
		}
	}
	return cfg.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt")
}

func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

// Type writes text as if typed, after delay.
func Type(delay time.Duration, text string) Step {
	return Step{Delay: delay, Input: []byte(text)}
}

// Press sends a key sequence after delay.
func Press(delay time.Duration, key []byte) Step {
	return Step{Delay: delay, Input: key}
}

// PressWhen sends a key sequence once the screen shows text.
func PressWhen(text string, key []byte) Step {
	return Step{WaitFor: text, Input: key}
}

var (
	KeyEnter = []byte{'\r'}
	KeyTab   = []byte{'\t'}
	KeyCtrlC = []byte{3}
	KeyCtrlF = []byte{6}
	KeyEsc   = []byte{27}
	KeyDown  = []byte("\x1b[B")
	KeyUp    = []byte("\x1b[A")
)
