package store

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Raw is a read-only view of the JSON document as it was found on disk,
// before it was decoded into the in-memory shape.
type Raw struct {
	data []byte
}

// NewRaw wraps JSON bytes.
func NewRaw(data []byte) Raw {
	return Raw{data: data}
}

// Has reports whether the top-level key is present.
func (r Raw) Has(key string) bool {
	return r.Get(EscapeKey(key)).Exists()
}

// Get returns the value at a gjson path.
func (r Raw) Get(path string) gjson.Result {
	if len(r.data) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.data, path)
}

// Keys returns the top-level keys in document order.
func (r Raw) Keys() []string {
	var keys []string
	gjson.ParseBytes(r.data).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Bytes returns the raw document.
func (r Raw) Bytes() []byte {
	return r.data
}

// EscapeKey escapes a literal object key for use as a gjson/sjson path.
func EscapeKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// SetRawKey sets a top-level key to a raw JSON value.
func SetRawKey(doc []byte, key string, value []byte) ([]byte, error) {
	return sjson.SetRawBytes(doc, EscapeKey(key), value)
}

var prettyOptions = &pretty.Options{Width: 80, Indent: "    "}

// Format rewrites JSON with fixed indentation. Key order is preserved.
func Format(doc []byte) []byte {
	return pretty.PrettyOptions(doc, prettyOptions)
}
