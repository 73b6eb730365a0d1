package grntestkit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CopyPath copies the fixture file src to dest, creating dest's directory.
func CopyPath(t T, src, dest string) {
	t.Helper()
	if err := copyFile(src, dest); err != nil {
		t.Errorf("copy-path %s %s: %v", src, dest, err)
		t.FailNow()
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}

// FixDBPath replaces every occurrence of dbPath inside string values with
// "db/db", the path recorded transcripts use. Containers are rewritten in
// place.
func FixDBPath(actual any, dbPath string) any {
	switch v := actual.(type) {
	case string:
		return strings.ReplaceAll(v, dbPath, "db/db")
	case []any:
		for i := range v {
			v[i] = FixDBPath(v[i], dbPath)
		}
	case map[string]any:
		for k := range v {
			v[k] = FixDBPath(v[k], dbPath)
		}
	}
	return actual
}

// FixObjectInspect zeroes every scalar disk_usage field of an object_inspect
// result.
func FixObjectInspect(obj any) any {
	switch v := obj.(type) {
	case map[string]any:
		for k, e := range v {
			switch e.(type) {
			case map[string]any, []any:
				v[k] = FixObjectInspect(e)
			default:
				if k == "disk_usage" {
					v[k] = json.Number("0")
				}
			}
		}
	case []any:
		for i := range v {
			v[i] = FixObjectInspect(v[i])
		}
	}
	return obj
}

// FixObjectList normalizes an object_list result: sizes that depend on the
// storage layout are zeroed so recorded and live results compare equal.
func FixObjectList(obj any) any {
	entries, ok := obj.(map[string]any)
	if !ok {
		return obj
	}
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"disk_usage", "value_size"} {
			if _, ok := entry[key]; ok {
				entry[key] = json.Number("0")
			}
		}
	}
	return obj
}
