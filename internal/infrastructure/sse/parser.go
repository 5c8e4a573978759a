package sse

import (
	"bufio"
	"io"
	"strings"

	"github.com/FreePeak/golang-sse-sdk/internal/domain"
)

// maxLineSize bounds a single SSE line; streams with longer lines fail the scan.
const maxLineSize = 1 << 20

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithCommentHandler registers a callback invoked for every comment line
// (": ...") the parser encounters. Comments never surface as events; the
// hook exists so callers can observe keep-alive traffic.
func WithCommentHandler(fn func(text string)) ParserOption {
	return func(p *Parser) {
		p.onComment = fn
	}
}

// Parser incrementally decodes a text/event-stream byte source into discrete
// events. A Parser holds per-connection accumulator state and must not be
// reused across reconnect attempts; construct a new one per stream.
type Parser struct {
	scanner   *bufio.Scanner
	onComment func(text string)
}

// NewParser creates a Parser reading from r.
func NewParser(r io.Reader, opts ...ParserOption) *Parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	p := &Parser{scanner: sc}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next complete event from the stream.
//
// An event is dispatched only on its blank-line terminator; data accumulated
// when the source ends without one is discarded. Next returns io.EOF when
// the source is exhausted and any other error the underlying read produced.
func (p *Parser) Next() (domain.Event, error) {
	var (
		name      string
		id        string
		dataLines []string
	)

	for p.scanner.Scan() {
		line := p.scanner.Text()

		if line == "" {
			// Blank separator with no data accumulated yet is ignored.
			if len(dataLines) == 0 {
				continue
			}
			ev := domain.Event{
				Name: name,
				Data: strings.Join(dataLines, "\n"),
				ID:   id,
			}
			if ev.Name == "" {
				ev.Name = domain.DefaultEventName
			}
			return ev, nil
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimSpace(line[len("id:"):])
		case strings.HasPrefix(line, "retry:"):
			// Recognized but ignored; reconnect policy is configured locally.
		case strings.HasPrefix(line, ":"):
			if p.onComment != nil {
				p.onComment(strings.TrimSpace(line[1:]))
			}
		}
	}

	if err := p.scanner.Err(); err != nil {
		return domain.Event{}, err
	}
	return domain.Event{}, io.EOF
}
