package adb

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Shell is a bidirectional, line-oriented text channel to a device shell.
// Only the input side is used; output is discarded by the launcher.
type Shell interface {
	// WriteLine writes line followed by a newline. Implementations must not
	// buffer: the remote side observes the line when WriteLine returns.
	WriteLine(line string) error
	// Exited reports whether the underlying process has terminated.
	Exited() bool
	// CloseInput closes the shell's input stream.
	CloseInput() error
	// Terminate forcibly stops the shell and waits for it to be reaped.
	Terminate() error
}

// Launcher runs device bridge commands on the host.
type Launcher interface {
	// Run executes one bridge command to completion and returns its stdout.
	// A non-zero exit status is reported as an error.
	Run(ctx context.Context, args ...string) ([]byte, error)
	// Spawn starts a long-lived bridge command whose stdin accepts lines.
	Spawn(args ...string) (Shell, error)
}

// ExecLauncher runs the device bridge executable as a host process.
type ExecLauncher struct {
	path string
}

// NewExecLauncher returns a launcher for the bridge binary at path
// ("adb" resolves through $PATH).
func NewExecLauncher(path string) *ExecLauncher {
	if path == "" {
		path = "adb"
	}
	return &ExecLauncher{path: path}
}

// Path returns the bridge executable this launcher runs.
func (l *ExecLauncher) Path() string { return l.path }

// Run implements Launcher. Stderr is discarded.
func (l *ExecLauncher) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, l.path, args...)
	cmd.Stderr = io.Discard
	hideWindow(cmd)
	return cmd.Output()
}

// Spawn implements Launcher. The process is bound to a detached context so it
// outlives the caller's request; Terminate cancels it.
func (l *ExecLauncher) Spawn(args ...string) (Shell, error) {
	cmdCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(cmdCtx, l.path, args...)
	hideWindow(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", l.path, err)
	}

	s := &execShell{
		cancel: cancel,
		stdin:  stdin,
		done:   make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()
	return s, nil
}

type execShell struct {
	cancel context.CancelFunc
	stdin  io.WriteCloser
	done   chan struct{}
}

func (s *execShell) WriteLine(line string) error {
	_, err := io.WriteString(s.stdin, line+"\n")
	return err
}

func (s *execShell) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *execShell) CloseInput() error {
	return s.stdin.Close()
}

func (s *execShell) Terminate() error {
	s.cancel()
	<-s.done
	return nil
}
