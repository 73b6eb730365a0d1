package parser

import "time"

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// TelemetryMode controls telemetry collection
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Line and element counts only
	TelemetryTiming                      // Counts + total parse time
)

// ParserConfig holds parser configuration
type ParserConfig struct {
	responses bool
	telemetry TelemetryMode
	source    string
}

// WithResponses parses an expected transcript: every command must be
// followed by its recorded response.
func WithResponses() ParserOpt {
	return func(c *ParserConfig) {
		c.responses = true
	}
}

// WithSource names the transcript in error messages.
func WithSource(name string) ParserOpt {
	return func(c *ParserConfig) {
		c.source = name
	}
}

// WithTelemetryBasic enables basic telemetry (counts only)
func WithTelemetryBasic() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry (counts + parse time)
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryTiming
	}
}

// ParseTelemetry holds parser metrics
type ParseTelemetry struct {
	LineCount     int           // Physical lines in the transcript
	ElementCount  int           // Elements produced
	CommandCount  int           // Command elements produced
	ResponseCount int           // Commands with an attached response
	TotalTime     time.Duration // Zero unless TelemetryTiming
}
