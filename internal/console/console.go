// Package console is the plain line-oriented front end: prompts and answers
// on stdout, input from stdin.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"tradelaw/internal/domain"
)

// LineReader reads one line per prompt. A final line without a trailing
// newline is returned as-is; after that it reports io.EOF.
//
// A single goroutine owns the underlying reader, so a ReadLine abandoned on
// cancellation leaves its line queued for the next call.
type LineReader struct {
	r     *bufio.Reader
	w     io.Writer
	once  sync.Once
	lines chan readResult
	err   error
}

func NewLineReader(r io.Reader, w io.Writer) *LineReader {
	return &LineReader{r: bufio.NewReader(r), w: w, lines: make(chan readResult)}
}

type readResult struct {
	line string
	err  error
}

func (l *LineReader) pump() {
	for {
		line, err := l.r.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		l.lines <- readResult{line: strings.TrimRight(line, "\r\n"), err: err}
		if err != nil {
			close(l.lines)
			return
		}
	}
}

// ReadLine writes prompt and waits for a line or for ctx to be done. Once
// the input fails or ends, that error is returned on every later call.
func (l *LineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if _, err := io.WriteString(l.w, prompt); err != nil {
		return "", err
	}
	l.once.Do(func() { go l.pump() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-l.lines:
		if res.err != nil {
			l.err = res.err
		}
		return res.line, res.err
	}
}

// Writer presents answers and notices.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (o *Writer) Notice(msg string) {
	fmt.Fprintln(o.w, msg)
}

// Present prints the model text verbatim followed by a blank line.
func (o *Writer) Present(action domain.Action) error {
	_, err := fmt.Fprintf(o.w, "%s\n\n", action.Text)
	return err
}
