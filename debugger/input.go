package debugger

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Input is the source of debugger commands.
type Input interface {
	// ReadLine shows prompt and returns the next command line without its
	// line terminator. io.EOF ends the session.
	ReadLine(prompt string) (string, error)
}

// LineInput reads commands line by line from a reader.
type LineInput struct {
	r *bufio.Reader
	w io.Writer
}

// NewLineInput reads from r and writes prompts to w. w may be nil.
func NewLineInput(r io.Reader, w io.Writer) *LineInput {
	return &LineInput{r: bufio.NewReader(r), w: w}
}

func (in *LineInput) ReadLine(prompt string) (string, error) {
	if in.w != nil && prompt != "" {
		if _, err := io.WriteString(in.w, prompt); err != nil {
			return "", err
		}
	}
	line, err := in.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// DefaultInput returns a terminal prompt when both stdin and w are
// terminals, and a LineInput on stdin otherwise.
func DefaultInput(w io.Writer) Input {
	if isTerminal(os.Stdin) && isTerminal(w) {
		return NewTerminalInput(os.Stdin, w)
	}
	return NewLineInput(os.Stdin, w)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
