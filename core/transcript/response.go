package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opal-lang/grnconv/core/value"
)

// ErrMalformedResponse is returned when a JSON response does not have one of
// the recognised header shapes.
var ErrMalformedResponse = errors.New("malformed response")

// Form is the wire form a response was recorded in.
type Form int

const (
	// FormRaw is multi-line text such as dump output, XML or a one-line
	// function-call response.
	FormRaw Form = iota
	// FormLegacy is [header, body] with header [rc, start, elapsed] or
	// [[rc, start, elapsed], message].
	FormLegacy
	// FormVersioned is {"header": {...}, "body": ...}.
	FormVersioned
)

// ErrorDetail is the error part of a response header.
type ErrorDetail struct {
	Message  string
	Function string
	File     string
	Line     int64
}

// Header is the normalized response header.
type Header struct {
	ReturnCode  int64
	StartTime   float64
	ElapsedTime float64
	Error       *ErrorDetail
}

// Response is a recorded command response. Error is set exactly when
// ReturnCode is non-zero.
type Response struct {
	Form   Form
	Text   string // source text
	Header Header
	Body   any // decoded body for JSON forms
}

// Raw wraps text as a raw response.
func Raw(text string) *Response {
	return &Response{Form: FormRaw, Text: text}
}

// ParseResponse decodes a recorded response. Text that does not start with
// '[' or '{' is kept raw.
func ParseResponse(text string) (*Response, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '{') {
		return Raw(text), nil
	}

	decoded, err := value.Decode(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch v := decoded.(type) {
	case []any:
		return parseLegacy(text, v)
	case *value.Object:
		return parseVersioned(text, v)
	}
	return nil, fmt.Errorf("%w: unexpected %T", ErrMalformedResponse, decoded)
}

// IsError reports whether the response records a failed command.
func (r *Response) IsError() bool {
	return r != nil && r.Form != FormRaw && r.Header.ReturnCode != 0
}

// ErrorMessage returns the recorded error message.
func (r *Response) ErrorMessage() (string, bool) {
	if !r.IsError() || r.Header.Error == nil {
		return "", false
	}
	return r.Header.Error.Message, true
}

// Value returns what a successful call is expected to return: the raw text
// for FormRaw, the body otherwise.
func (r *Response) Value() any {
	if r == nil {
		return nil
	}
	if r.Form == FormRaw {
		return r.Text
	}
	return r.Body
}

func parseLegacy(text string, arr []any) (*Response, error) {
	if len(arr) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedResponse)
	}
	header, ok := arr[0].([]any)
	if !ok || len(header) == 0 {
		return nil, fmt.Errorf("%w: header is not an array", ErrMalformedResponse)
	}

	r := &Response{Form: FormLegacy, Text: text}
	if len(arr) > 1 {
		r.Body = arr[1]
	}

	// [[rc, start, elapsed], message]
	if inner, nested := header[0].([]any); nested {
		if err := readTimes(&r.Header, inner); err != nil {
			return nil, err
		}
		msg := ""
		if len(header) > 1 {
			msg, _ = header[1].(string)
		}
		if r.Header.ReturnCode != 0 {
			r.Header.Error = &ErrorDetail{Message: msg}
		}
		return r, nil
	}

	// [rc, start, elapsed(, message)]
	if err := readTimes(&r.Header, header); err != nil {
		return nil, err
	}
	if r.Header.ReturnCode != 0 {
		msg := ""
		if len(header) > 3 {
			msg, _ = header[3].(string)
		} else if s, ok := r.Body.(string); ok {
			msg = s
		}
		r.Header.Error = &ErrorDetail{Message: msg}
	}
	return r, nil
}

func readTimes(h *Header, fields []any) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty header", ErrMalformedResponse)
	}
	rc, err := toInt(fields[0])
	if err != nil {
		return fmt.Errorf("%w: return code: %v", ErrMalformedResponse, err)
	}
	h.ReturnCode = rc
	if len(fields) > 1 {
		h.StartTime = toFloat(fields[1])
	}
	if len(fields) > 2 {
		h.ElapsedTime = toFloat(fields[2])
	}
	return nil
}

func parseVersioned(text string, obj *value.Object) (*Response, error) {
	if err := validateVersioned(obj); err != nil {
		return nil, err
	}

	r := &Response{Form: FormVersioned, Text: text}
	r.Body, _ = obj.Get("body")

	hv, _ := obj.Get("header")
	header := hv.(*value.Object)
	rcv, _ := header.Get("return_code")
	rc, err := toInt(rcv)
	if err != nil {
		return nil, fmt.Errorf("%w: return code: %v", ErrMalformedResponse, err)
	}
	r.Header.ReturnCode = rc
	if v, ok := header.Get("start_time"); ok {
		r.Header.StartTime = toFloat(v)
	}
	if v, ok := header.Get("elapsed_time"); ok {
		r.Header.ElapsedTime = toFloat(v)
	}

	if ev, ok := header.Get("error"); ok {
		detail := &ErrorDetail{}
		e := ev.(*value.Object)
		if v, ok := e.Get("message"); ok {
			detail.Message, _ = v.(string)
		}
		if v, ok := e.Get("function"); ok {
			detail.Function, _ = v.(string)
		}
		if v, ok := e.Get("file"); ok {
			detail.File, _ = v.(string)
		}
		if v, ok := e.Get("line"); ok {
			detail.Line, _ = toInt(v)
		}
		r.Header.Error = detail
	}

	if (r.Header.Error != nil) != (r.Header.ReturnCode != 0) {
		return nil, fmt.Errorf("%w: error presence disagrees with return code %d", ErrMalformedResponse, r.Header.ReturnCode)
	}
	return r, nil
}

func toInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("not a number: %v", v)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func toFloat(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, _ := n.Float64()
	return f
}
