package grntestkit

import (
	"context"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"
)

// Environment variables describing the environment generated tests run in.
const (
	EnvInterface    = "GRNTESTKIT_INTERFACE"     // client interface, default "http"
	EnvTestee       = "GRNTESTKIT_TESTEE"        // server under test, default "groonga"
	EnvApacheArrow  = "GRNTESTKIT_APACHE_ARROW"  // "1" or "true" when Apache Arrow is available
	EnvOmitCommands = "GRNTESTKIT_OMIT_COMMANDS" // comma separated command names to omit
)

// Requirements are the environment constraints a transcript declares.
type Requirements struct {
	Platform    string // "windows", "!windows", ...
	Interface   string
	Testee      string
	InputType   string
	ApacheArrow bool
}

// Advice is everything a generated test knows about its transcript before
// running it.
type Advice struct {
	TestPath    string
	Commands    []string
	Pragma      map[string]bool
	Env         map[string]string
	Omit        bool
	OmitReasons []string
	Timeout     time.Duration
	Require     Requirements
}

// DefaultTimeout bounds a test whose transcript sets no #@timeout.
const DefaultTimeout = 2 * time.Minute

// Context returns a context bounded by the transcript timeout.
func (a Advice) Context(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// ShouldOmit reports whether the test must be skipped and why.
func ShouldOmit(a Advice) (string, bool) {
	if a.Omit {
		if len(a.OmitReasons) == 0 {
			return "omitted", true
		}
		return strings.Join(a.OmitReasons, ", "), true
	}

	if p := a.Require.Platform; p != "" {
		if want, negate := strings.CutPrefix(p, "!"); negate == (platform() == want) {
			return "requires platform " + p, true
		}
	}

	if i := a.Require.Interface; i != "" && i != envOr(EnvInterface, "http") {
		return "requires interface " + i, true
	}

	if tt := a.Require.Testee; tt != "" && tt != envOr(EnvTestee, "groonga") {
		return "requires testee " + tt, true
	}

	if (a.Require.ApacheArrow || a.Require.InputType == "apache-arrow") && !apacheArrow() {
		return "requires Apache Arrow", true
	}

	if omitted := os.Getenv(EnvOmitCommands); omitted != "" {
		for _, name := range strings.Split(omitted, ",") {
			if slices.Contains(a.Commands, strings.TrimSpace(name)) {
				return "command " + strings.TrimSpace(name) + " is omitted", true
			}
		}
	}

	return "", false
}

// platform returns the platform name grntest uses for runtime.GOOS.
func platform() string {
	return runtime.GOOS
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func apacheArrow() bool {
	switch strings.ToLower(os.Getenv(EnvApacheArrow)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
