package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads interactive input.
type Prompter interface {
	ReadLine(label string) (string, error)
	ReadPassword(label string) (string, error)
}

// StdPrompter reads from stdin. Passwords are read without echo when stdin
// is a terminal.
type StdPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func NewStdPrompter() *StdPrompter {
	return &StdPrompter{in: bufio.NewReader(os.Stdin), out: os.Stderr, fd: int(os.Stdin.Fd())}
}

func (p *StdPrompter) ReadLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ":")), err)
	}
	return strings.TrimSpace(line), nil
}

func (p *StdPrompter) ReadPassword(label string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.ReadLine(label)
	}
	fmt.Fprint(p.out, label)
	pw, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
