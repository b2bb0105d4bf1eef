package memo

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
)

// Serializable is implemented by arguments that have a canonical plain form.
// The canonical form, not the value itself, takes part in key derivation, so
// distinct instances holding equal data produce the same key.
type Serializable interface {
	Canonical() any
}

// NewKey derives the cache key for a call:
//
//	md5(tag + "->" + method + "(" + base64(json(args)) + ")")
//
// method is used exactly as called, prefix included.
func NewKey(tag, method string, args ...any) (Key, error) {
	params, err := encodeArgs(args)
	if err != nil {
		return "", &SerializationError{Method: method, Err: err}
	}

	sum := md5.Sum([]byte(tag + "->" + method + "(" + params + ")"))
	return Key(hex.EncodeToString(sum[:])), nil
}

func encodeArgs(args []any) (string, error) {
	normalized := make([]any, len(args))
	for i, arg := range args {
		if s, ok := arg.(Serializable); ok && !isNil(arg) {
			normalized[i] = s.Canonical()
			continue
		}
		normalized[i] = arg
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
