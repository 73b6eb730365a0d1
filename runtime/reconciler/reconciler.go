// Package reconciler merges a script transcript with its expected transcript
// so every logged command carries the response recorded for it.
package reconciler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/opal-lang/grnconv/core/transcript"
)

var (
	// ErrSequenceMismatch is returned when the script and expected
	// transcripts log a different number of commands.
	ErrSequenceMismatch = errors.New("sequence mismatch")
	// ErrMissingResponse is returned when a logged expected command has no
	// response.
	ErrMissingResponse = errors.New("missing response")
)

// Fixup corrects known drift between a script and its expected transcript.
type Fixup struct {
	// Drop lists sequence numbers of expected commands that have no
	// counterpart in the script.
	Drop []int `yaml:"drop"`
}

// ApplyFixup removes the dropped expected commands and renumbers the
// following ones so they line up with the script again. The input is not
// modified.
func ApplyFixup(expected []transcript.Element, fix Fixup) []transcript.Element {
	if len(fix.Drop) == 0 {
		return transcript.CloneAll(expected)
	}

	drop := slices.Clone(fix.Drop)
	slices.Sort(drop)

	out := make([]transcript.Element, 0, len(expected))
	for _, e := range expected {
		if !e.IsCommand() || e.Seq <= 0 {
			out = append(out, e.Clone())
			continue
		}
		if _, found := slices.BinarySearch(drop, e.Seq); found {
			continue
		}
		shift := 0
		for _, d := range drop {
			if d < e.Seq {
				shift++
			}
		}
		c := e.Clone()
		c.Seq -= shift
		out = append(out, c)
	}
	return out
}

// Reconcile replaces every logged script command with the expected command
// of the same sequence number. Unlogged script commands get synthetic ids
// -1, -2, ... in order of appearance. Neither input is modified.
func Reconcile(script, expected []transcript.Element) ([]transcript.Element, error) {
	out := transcript.CloneAll(script)

	scriptMax := 0
	tmp := 0
	for i := range out {
		e := &out[i]
		if !e.IsCommand() {
			continue
		}
		switch {
		case e.Seq > scriptMax:
			scriptMax = e.Seq
		case e.Seq <= 0:
			tmp++
			e.Seq = -tmp
		}
	}

	expectedMax := 0
	responses := make(map[int]transcript.Element)
	for _, e := range expected {
		if !e.IsCommand() {
			continue
		}
		if e.Seq > 0 {
			if e.Response == nil {
				return nil, fmt.Errorf("%w: expected command %d (%s)", ErrMissingResponse, e.Seq, e.Name())
			}
			responses[e.Seq] = e
		}
		if e.Seq > expectedMax {
			expectedMax = e.Seq
		}
	}

	if scriptMax != expectedMax {
		return nil, fmt.Errorf("%w: script logs %d commands, expected logs %d", ErrSequenceMismatch, scriptMax, expectedMax)
	}

	for i, e := range out {
		if !e.IsCommand() || e.Seq <= 0 {
			continue
		}
		match, ok := responses[e.Seq]
		if !ok {
			return nil, fmt.Errorf("%w: no expected command %d (%s)", ErrSequenceMismatch, e.Seq, e.Name())
		}
		out[i] = match.Clone()
	}

	return out, nil
}
