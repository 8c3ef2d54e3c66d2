package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
)

type prompter interface {
	// Line reads one line of visible input.
	Line(label string) (string, error)
	// Secret reads one line without echo when stdin is a terminal.
	Secret(label string) (string, error)
}

type terminalPrompter struct {
	in     *os.File
	reader *bufio.Reader
	out    io.Writer
}

func newTerminalPrompter(in *os.File, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)

	s, err := p.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && s != "" {
		err = nil
	}
	if errors.Is(err, io.EOF) {
		return "", goerror.NewInvalidFormat("input ended before " + strings.TrimSpace(strings.TrimSuffix(label, ": ")))
	}
	if err != nil {
		return "", err
	}

	return strings.TrimRight(s, "\r\n"), nil
}

func (p *terminalPrompter) Secret(label string) (string, error) {
	fd := int(p.in.Fd()) //nolint:gosec // descriptors fit in int
	if !term.IsTerminal(fd) {
		return p.Line(label)
	}

	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
