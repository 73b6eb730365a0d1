// Package lexer splits grntest transcripts into physical lines and scans
// them into the raw pieces a transcript is made of: commands, value blocks,
// responses and comment batches.
package lexer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/opal-lang/grnconv/core/invariant"
	"github.com/opal-lang/grnconv/core/transcript"
	"github.com/opal-lang/grnconv/core/value"
)

var (
	// ErrUnknownSigil is returned for a comment line whose first two
	// characters match no comment rule.
	ErrUnknownSigil = errors.New("unknown comment sigil")
	// ErrUnterminatedValues is returned when a value block never becomes
	// valid JSON before the input ends.
	ErrUnterminatedValues = errors.New("unterminated value block")
)

// dumpSentinel is the success response of the command echoed after a dump.
const dumpSentinel = "[[0,0.0,0.0],true]\n"

var funcResponse = regexp.MustCompile(`^func\(.*?\)`)

// Scanner walks a transcript line by line. Lines keep their trailing "\n";
// only the last line may lack one.
type Scanner struct {
	lines []string
	index int
}

// New returns a Scanner over text.
func New(text string) *Scanner {
	return &Scanner{lines: splitLines(text)}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Done reports whether every line has been consumed.
func (s *Scanner) Done() bool { return s.index >= len(s.lines) }

// Index returns the number of consumed lines.
func (s *Scanner) Index() int { return s.index }

// Len returns the total number of lines.
func (s *Scanner) Len() int { return len(s.lines) }

// Peek returns the next line without consuming it.
func (s *Scanner) Peek() (string, bool) {
	if s.Done() {
		return "", false
	}
	return s.lines[s.index], true
}

// Scan consumes and returns the next line.
func (s *Scanner) Scan() (string, bool) {
	line, ok := s.Peek()
	if ok {
		s.index++
	}
	return line, ok
}

// ReadRest consumes and returns everything left.
func (s *Scanner) ReadRest() string {
	if s.Done() {
		return ""
	}
	rest := strings.Join(s.lines[s.index:], "")
	s.index = len(s.lines)
	return rest
}

// SkipEmptyLines consumes whitespace-only lines.
func (s *Scanner) SkipEmptyLines() {
	for {
		line, ok := s.Peek()
		if !ok || !isBlank(line) {
			return
		}
		s.index++
	}
}

// ScanCommand consumes a command starting at the next line. A command
// starts with [A-Za-z0-9_] or "/d/" and continues while a line ends with a
// backslash-newline.
func (s *Scanner) ScanCommand() (string, bool) {
	command, ok := s.Peek()
	if !ok || !(startsWithWord(command) || strings.HasPrefix(command, "/d/")) {
		return "", false
	}
	s.index++

	for strings.HasSuffix(command, "\\\n") {
		line, ok := s.Scan()
		if !ok {
			break
		}
		command += line
	}
	return command, true
}

// ScanValues consumes a JSON array value block. It reports false without
// consuming anything when the next line does not open an array.
func (s *Scanner) ScanValues() (string, bool, error) {
	line, ok := s.Peek()
	if !ok || !strings.HasPrefix(trimLeadingSpace(line), "[") {
		return "", false, nil
	}

	start := s.index
	var b strings.Builder
	for {
		line, ok := s.Scan()
		if !ok {
			return "", false, fmt.Errorf("%w: started at line %d", ErrUnterminatedValues, start+1)
		}
		b.WriteString(line)
		if value.Valid(b.String()) {
			return b.String(), true, nil
		}
	}
}

// ScanComments consumes consecutive comment lines and classifies them.
// Notes and logs absorb their continuation lines; a query log runs through
// its "#<" terminator.
func (s *Scanner) ScanComments() ([]transcript.Element, error) {
	var comments []transcript.Element

	for {
		line, ok := s.Peek()
		if !ok || !strings.HasPrefix(line, "#") {
			return comments, nil
		}

		rule, found := lookupCommentRule(line)
		if !found {
			return nil, fmt.Errorf("%w %q at line %d", ErrUnknownSigil, strings.TrimRight(line, "\n"), s.index+1)
		}
		s.index++

		var b strings.Builder
		b.WriteString(line)
		switch rule.mode {
		case whilePrefix:
			for {
				next, ok := s.Peek()
				if !ok || !strings.HasPrefix(next, rule.next) {
					break
				}
				s.index++
				b.WriteString(next)
			}
		case throughTerminator:
			for {
				next, ok := s.Scan()
				if !ok {
					break
				}
				b.WriteString(next)
				if strings.HasPrefix(next, rule.next) {
					break
				}
			}
		}

		comments = append(comments, transcript.Element{Kind: rule.kind, Text: b.String()})
	}
}

// ScanResponse consumes lines until one looks like a command, a comment or
// a URL command. A leading func(...) line is a complete response on its own.
func (s *Scanner) ScanResponse() (string, bool) {
	var b strings.Builder
	for {
		line, ok := s.Peek()
		if !ok {
			break
		}
		if funcResponse.MatchString(line) {
			if b.Len() == 0 {
				s.index++
				return line, true
			}
			break
		}
		if startsWithLower(line) || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "/d/") {
			break
		}
		b.WriteString(line)
		s.index++
	}
	return b.String(), b.Len() > 0
}

// ScanDumpResponse consumes free-form output such as dump, XML or Apache
// Arrow text. Such output has no terminator of its own, so it ends at:
//
//   - the success response of the next command, in which case that
//     command's echo line is given back;
//   - a comment line;
//   - a '[' line right after a "select " line, which is a select echo and
//     its response, also given back.
//
// The last rule only covers select echoes seen in recorded fixtures.
func (s *Scanner) ScanDumpResponse() string {
	var lines []string
	for {
		line, ok := s.Peek()
		if !ok {
			break
		}
		if line == dumpSentinel {
			s.giveBack(&lines)
			break
		}
		if strings.HasPrefix(line, "#") {
			break
		}
		if strings.HasPrefix(line, "[") && len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "select ") {
			s.giveBack(&lines)
			break
		}
		lines = append(lines, line)
		s.index++
	}
	return strings.Join(lines, "")
}

// giveBack moves the cursor back over the last accumulated line.
func (s *Scanner) giveBack(lines *[]string) {
	if len(*lines) == 0 {
		return
	}
	invariant.Invariant(s.index > 0, "give back before the first line")
	*lines = (*lines)[:len(*lines)-1]
	s.index--
}
