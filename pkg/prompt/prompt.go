package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	responseYes = "yes"
	responseY   = "y"
)

// Prompter asks the user for values that were not supplied on the command line.
// Every method returns ctx.Err() as soon as ctx is done, even while blocked
// on input.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
	Password(ctx context.Context, label string) (string, error)
	Confirm(ctx context.Context, message string) (bool, error)
}

type Terminal struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

func NewTerminal() *Terminal {
	return NewTerminalWith(os.Stdin, os.Stderr)
}

// NewTerminalWith prompts on out and reads from in. Prompts go to stderr by
// default so stdout stays reserved for response data.
func NewTerminalWith(in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

func (t *Terminal) Prompt(ctx context.Context, label string) (string, error) {
	_, _ = color.New(color.FgCyan).Fprint(t.out, label)
	return t.readLine(ctx)
}

// Password reads without echo when attached to a terminal and falls back to
// a plain line read for pipes.
func (t *Terminal) Password(ctx context.Context, label string) (string, error) {
	_, _ = color.New(color.FgCyan).Fprint(t.out, label)

	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return t.readLine(ctx)
	}

	// ReadPassword only restores echo when it returns, so keep the state
	// to put back on cancellation.
	state, err := term.GetState(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read terminal state: %w", err)
	}

	b, err := await(ctx, func() ([]byte, error) { return term.ReadPassword(fd) })
	fmt.Fprintln(t.out)
	if ctx.Err() != nil {
		_ = term.Restore(fd, state)
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	_, _ = color.New(color.FgYellow).Fprintf(t.out, "%s [y/N]: ", message)

	response, err := t.readLine(ctx)
	if err != nil {
		return false, err
	}

	response = strings.ToLower(response)
	return response == responseY || response == responseYes, nil
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	line, err := await(ctx, func() (string, error) { return t.reader.ReadString('\n') })
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// await runs read in its own goroutine so a cancelled ctx unblocks the
// caller. The abandoned read finishes when the process exits.
func await[T any](ctx context.Context, read func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := read()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Static answers prompts from fixed values, for non-interactive use and tests.
type Static struct {
	Username string
	Secret   string
	Answer   bool
	Asked    []string
}

func (s *Static) Prompt(ctx context.Context, label string) (string, error) {
	s.Asked = append(s.Asked, label)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Username == "" {
		return "", errors.New("no input available")
	}
	return s.Username, nil
}

func (s *Static) Password(ctx context.Context, label string) (string, error) {
	s.Asked = append(s.Asked, label)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Secret == "" {
		return "", errors.New("no input available")
	}
	return s.Secret, nil
}

func (s *Static) Confirm(ctx context.Context, message string) (bool, error) {
	s.Asked = append(s.Asked, message)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Answer, nil
}
