// Package transcript defines the elements a grntest transcript is made of and
// the recorded responses attached to commands.
package transcript

import (
	"fmt"

	"github.com/opal-lang/grnconv/core/grn"
)

// Kind identifies the variant of an Element.
type Kind int

const (
	KindCommand Kind = iota
	KindPragma
	KindExport
	KindNote
	KindLog
	KindQueryLog
)

var kindNames = [...]string{
	KindCommand:  "command",
	KindPragma:   "pragma",
	KindExport:   "export",
	KindNote:     "note",
	KindLog:      "log",
	KindQueryLog: "query_log",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Element is one logical unit of a transcript.
//
// Invocation, Seq and Response are only meaningful for commands. Seq is
// positive for commands matched against the expected transcript, 0 while
// logging is disabled or for included commands, and negative for commands
// that were given a synthetic id during reconciliation.
type Element struct {
	Kind       Kind
	Text       string
	Invocation grn.Invocation
	Seq        int
	Response   *Response
}

// NewCommand returns a command element.
func NewCommand(text string, inv grn.Invocation, seq int) Element {
	return Element{Kind: KindCommand, Text: text, Invocation: inv, Seq: seq}
}

// IsCommand reports whether e is a command.
func (e Element) IsCommand() bool { return e.Kind == KindCommand }

// Name returns the command name, or "" for non-commands.
func (e Element) Name() string {
	if !e.IsCommand() {
		return ""
	}
	return e.Invocation.Name
}

// Clone returns a copy that shares no mutable state with e. Responses are
// immutable once parsed and stay shared.
func (e Element) Clone() Element {
	out := e
	out.Invocation = e.Invocation.Clone()
	return out
}

// CloneAll copies a slice of elements.
func CloneAll(elems []Element) []Element {
	if elems == nil {
		return nil
	}
	out := make([]Element, len(elems))
	for i, e := range elems {
		out[i] = e.Clone()
	}
	return out
}

// MaxSeq returns the largest positive sequence number among commands, or 0.
func MaxSeq(elems []Element) int {
	max := 0
	for _, e := range elems {
		if e.IsCommand() && e.Seq > max {
			max = e.Seq
		}
	}
	return max
}
