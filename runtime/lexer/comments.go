package lexer

import "github.com/opal-lang/grnconv/core/transcript"

// continuation says how a comment extends past its first line.
type continuation int

const (
	singleLine        continuation = iota
	whilePrefix                    // following lines starting with next
	throughTerminator              // up to and including the first line starting with next
)

// commentRule classifies a comment by the two characters it starts with.
type commentRule struct {
	sigils []string
	kind   transcript.Kind
	mode   continuation
	next   string
}

var commentRules = []commentRule{
	{sigils: []string{"#@"}, kind: transcript.KindPragma, mode: singleLine},
	{sigils: []string{"#$"}, kind: transcript.KindExport, mode: singleLine},
	{sigils: []string{"# ", "#T"}, kind: transcript.KindNote, mode: whilePrefix, next: "# "},
	{sigils: []string{"#|"}, kind: transcript.KindLog, mode: whilePrefix, next: "#|"},
	{sigils: []string{"#>"}, kind: transcript.KindQueryLog, mode: throughTerminator, next: "#<"},
}

func lookupCommentRule(line string) (commentRule, bool) {
	if len(line) < 2 {
		return commentRule{}, false
	}
	sigil := line[:2]
	for _, rule := range commentRules {
		for _, s := range rule.sigils {
			if s == sigil {
				return rule, true
			}
		}
	}
	return commentRule{}, false
}
