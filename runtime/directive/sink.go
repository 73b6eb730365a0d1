package directive

import "github.com/opal-lang/grnconv/runtime/emitter"

// Scope is where emitted lines go.
type Scope int

const (
	// ScopeNormal lines run directly in the test body.
	ScopeNormal Scope = iota
	// ScopeBuffering lines belong to an on-error omit region and run inside
	// grntestkit.Try.
	ScopeBuffering
)

func (s Scope) String() string {
	if s == ScopeBuffering {
		return "buffering"
	}
	return "normal"
}

// Sink collects the lines of a test body. Lines pushed in ScopeBuffering are
// held back and written as one grntestkit.Try region when the scope returns
// to normal or the body is finished.
type Sink struct {
	lines   []string
	buf     []string
	imports emitter.Imports
}

// NewSink returns an empty Sink recording its imports into imports.
func NewSink(imports emitter.Imports) *Sink {
	return &Sink{imports: imports}
}

// Push appends lines to the target of scope.
func (s *Sink) Push(scope Scope, lines ...string) {
	if scope == ScopeBuffering {
		s.buf = append(s.buf, lines...)
		return
	}
	s.lines = append(s.lines, lines...)
}

// Transition flushes the buffer when a region ends.
func (s *Sink) Transition(from, to Scope) {
	if from == ScopeBuffering && to == ScopeNormal {
		s.flush()
	}
}

// Finish flushes a region left open and returns the body.
func (s *Sink) Finish() []string {
	s.flush()
	return s.lines
}

func (s *Sink) flush() {
	if len(s.buf) == 0 {
		return
	}
	if s.imports != nil {
		s.imports.Add(emitter.ImportGrntestkit)
	}

	// The separator after the region's last element goes after the closing
	// brace.
	buf := s.buf
	for len(buf) > 0 && buf[len(buf)-1] == "" {
		buf = buf[:len(buf)-1]
	}

	s.lines = append(s.lines, "if !grntestkit.Try(t, func(t grntestkit.T) {")
	for _, l := range buf {
		if l == "" {
			s.lines = append(s.lines, "")
			continue
		}
		s.lines = append(s.lines, "\t"+l)
	}
	s.lines = append(s.lines, "}) {", "\treturn", "}", "")
	s.buf = nil
}
