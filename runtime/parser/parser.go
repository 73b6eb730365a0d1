// Package parser turns grntest transcripts into transcript elements.
//
// A script transcript (*.test) carries commands and comments only. An
// expected transcript (*.expected, parsed WithResponses) additionally
// carries the recorded response after every command.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/opal-lang/grnconv/core/grn"
	"github.com/opal-lang/grnconv/core/invariant"
	"github.com/opal-lang/grnconv/core/transcript"
	"github.com/opal-lang/grnconv/runtime/lexer"
)

// Parser parses transcripts. A Parser is not safe for concurrent use; create
// one per goroutine.
type Parser struct {
	config    ParserConfig
	telemetry *ParseTelemetry
}

// New creates a parser with the given options.
func New(opts ...ParserOpt) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(&p.config)
	}
	return p
}

// Parse is a convenience wrapper around New(opts...).Parse(text).
func Parse(text string, opts ...ParserOpt) ([]transcript.Element, error) {
	return New(opts...).Parse(text)
}

// Telemetry returns metrics of the last Parse call, or nil when telemetry is
// off.
func (p *Parser) Telemetry() *ParseTelemetry {
	return p.telemetry
}

// Parse scans text into elements. Sequence numbers start at 1 and advance
// per command while logging is enabled; commands between
// #@disable-logging and #@enable-logging get 0.
func (p *Parser) Parse(text string) ([]transcript.Element, error) {
	var start time.Time
	if p.config.telemetry == TelemetryTiming {
		start = time.Now()
	}

	s := lexer.New(text)
	var elems []transcript.Element
	seq := 1
	logging := true

	for !s.Done() {
		from := s.Index()

		if cmdText, ok := s.ScanCommand(); ok {
			n := 0
			if logging {
				n = seq
			}
			elem, err := p.command(s, cmdText, n, from)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			if logging {
				seq++
			}
		}

		s.SkipEmptyLines()
		comments, err := s.ScanComments()
		if err != nil {
			return nil, p.errorAt(s.Index(), "", err)
		}
		for _, c := range comments {
			switch {
			case strings.HasPrefix(c.Text, "#@disable-logging"):
				logging = false
			case strings.HasPrefix(c.Text, "#@enable-logging"):
				logging = true
			}
			elems = append(elems, c)
		}
		s.SkipEmptyLines()

		if s.Index() == from {
			line, _ := s.Peek()
			return nil, p.errorAt(from, line, ErrNoProgress)
		}
	}

	invariant.Postcondition(s.Done(), "parser stopped with %d of %d lines consumed", s.Index(), s.Len())

	if p.config.telemetry != TelemetryOff {
		p.telemetry = collect(elems, s.Len())
		if p.config.telemetry == TelemetryTiming {
			p.telemetry.TotalTime = time.Since(start)
		}
	}

	return elems, nil
}

func (p *Parser) command(s *lexer.Scanner, text string, seq, line int) (transcript.Element, error) {
	inv, err := grn.Parse(text)
	if err != nil {
		return transcript.Element{}, p.errorAt(line, text, fmt.Errorf("%w: %v", ErrInvalidCommand, err))
	}
	elem := transcript.NewCommand(text, inv, seq)

	if inv.Name == "dump" {
		if p.config.responses {
			elem.Response = transcript.Raw(s.ScanDumpResponse())
		}
		return elem, nil
	}

	if inv.Name == "load" && !inv.Args.Has("values") {
		values, found, err := s.ScanValues()
		if err != nil {
			return transcript.Element{}, p.errorAt(line, text, err)
		}
		if !found {
			return transcript.Element{}, p.errorAt(line, text, ErrMissingValues)
		}
		elem.Invocation.Args.Set("values", values)
	}

	if !p.config.responses {
		return elem, nil
	}

	switch inv.OutputType {
	case "apache-arrow", "xml":
		elem.Response = transcript.Raw(s.ScanDumpResponse())
		return elem, nil
	}

	raw, ok := s.ScanResponse()
	if !ok {
		return transcript.Element{}, p.errorAt(line, text, ErrMissingResponse)
	}
	resp, err := transcript.ParseResponse(raw)
	if err != nil {
		return transcript.Element{}, p.errorAt(line, text, err)
	}
	elem.Response = resp
	return elem, nil
}

func (p *Parser) errorAt(index int, text string, err error) error {
	return &ParseError{Source: p.config.source, Line: index + 1, Text: text, Err: err}
}

func collect(elems []transcript.Element, lines int) *ParseTelemetry {
	t := &ParseTelemetry{LineCount: lines, ElementCount: len(elems)}
	for _, e := range elems {
		if !e.IsCommand() {
			continue
		}
		t.CommandCount++
		if e.Response != nil {
			t.ResponseCount++
		}
	}
	return t
}
