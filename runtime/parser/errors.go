package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoProgress is returned when a pass of the parse loop consumes no
	// line, which means the line fits none of the transcript forms.
	ErrNoProgress = errors.New("no line was scanned")
	// ErrMissingResponse is returned in response mode for a command with no
	// recorded response.
	ErrMissingResponse = errors.New("missing response")
	// ErrMissingValues is returned for a load without --values and without
	// a following value block.
	ErrMissingValues = errors.New("load without values")
	// ErrInvalidCommand is returned when a command line cannot be tokenized.
	ErrInvalidCommand = errors.New("invalid command")
)

// ParseError locates a transcript error.
type ParseError struct {
	Source string // transcript name, may be empty
	Line   int    // 1-based line the failing element starts at
	Text   string // offending text
	Err    error
}

// Error returns the message followed by a snippet of the offending text
func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		fmt.Fprintf(&b, "%s:%d: %v", e.Source, e.Line, e.Err)
	} else {
		fmt.Fprintf(&b, "line %d: %v", e.Line, e.Err)
	}

	if snippet := strings.TrimRight(e.Text, "\n"); snippet != "" {
		first, _, more := strings.Cut(snippet, "\n")
		b.WriteString("\n   |\n")
		fmt.Fprintf(&b, "%3d | %s", e.Line, first)
		if more {
			b.WriteString(" ...")
		}
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }
