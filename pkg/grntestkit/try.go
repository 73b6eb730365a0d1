package grntestkit

import (
	"fmt"
	"sync"
)

// T is the subset of *testing.T generated code uses. Assertions from
// testify accept it directly.
type T interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
	Logf(format string, args ...any)
	Setenv(key, value string)
}

type failNow struct{}

// recorder collects the first failure instead of reporting it. Any failure,
// fatal or not, ends the region.
type recorder struct {
	parent T

	mu     sync.Mutex
	failed bool
	first  string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.mu.Lock()
	if !r.failed {
		r.first = fmt.Sprintf(format, args...)
	}
	r.failed = true
	r.mu.Unlock()
	panic(failNow{})
}

func (r *recorder) FailNow() {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
	panic(failNow{})
}

func (r *recorder) Logf(format string, args ...any) { r.parent.Logf(format, args...) }

func (r *recorder) Setenv(key, value string) { r.parent.Setenv(key, value) }

// Try runs an on-error region. Failures inside fn are not reported to t;
// they end the region and make Try return false, and the caller then stops
// the test without failing it.
func Try(t T, fn func(t T)) bool {
	t.Helper()
	rec := &recorder{parent: t}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(failNow); !ok {
					panic(r)
				}
			}
		}()
		fn(rec)
	}()

	if rec.failed {
		t.Logf("on-error omit: stopping after %s", rec.first)
		return false
	}
	return true
}
