// Package grntestkit is the runtime support imported by Go tests that
// grnconv generates from grntest transcripts.
//
// A generated test declares its Advice, asks ShouldOmit whether it can run
// in the current environment and then replays the transcript against a
// groongar client. The helpers here cover what the transcript directives
// need at run time: on-error regions (Try), fixture copies (CopyPath), bulk
// loads (GenerateSeries) and normalization of environment-dependent
// responses.
//
// Responses are compared as decoded with encoding/json and UseNumber, so
// numbers are json.Number and objects are map[string]any.
package grntestkit
