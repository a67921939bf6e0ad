// Package canon implements deterministic canonical JSON encoding and the
// hashing primitives built on top of it: sorted object keys and no
// insignificant whitespace, so that the same logical value always
// serializes to the same bytes. Slices keep their element order; no
// slice is sorted, so a set must already be in a fixed order to hash
// the same way twice.
package canon

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JSON renders v as canonical JSON bytes: object keys sorted, no spaces.
// Slices are encoded in their given order; their elements are never
// sorted.
func JSON(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return encode(normalized)
}

// MustJSON panics if v cannot be canonicalized. Intended for values whose
// shape is controlled by this codebase (e.g. internal structs), where a
// failure indicates a programming error rather than bad input.
func MustJSON(v any) []byte {
	b, err := JSON(v)
	if err != nil {
		panic(fmt.Sprintf("canon: %v", err))
	}
	return b
}

// normalize round-trips v through encoding/json so struct tags, omitempty,
// etc. are honored, then walks the resulting generic tree so that map keys
// sort deterministically and nested maps/slices retain their shape.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case string:
		return json.Marshal(t)
	case float64:
		return json.Marshal(t)
	case []any:
		return encodeArray(t)
	case map[string]any:
		return encodeObject(t)
	default:
		// Fallback for anything encoding/json's Unmarshal into `any`
		// would not produce (shouldn't happen given normalize above).
		return json.Marshal(t)
	}
}

func encodeArray(arr []any) ([]byte, error) {
	out := []byte{'['}
	for i, elem := range arr {
		if i > 0 {
			out = append(out, ',')
		}
		b, err := encode(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	out = append(out, ']')
	return out, nil
}

func encodeObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		vb, err := encode(obj[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	out = append(out, '}')
	return out, nil
}

// SHA256Bytes returns the hex-encoded SHA-256 digest of b.
func SHA256Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256JSON canonicalizes v and returns the hex-encoded SHA-256 digest.
func SHA256JSON(v any) (string, error) {
	b, err := JSON(v)
	if err != nil {
		return "", err
	}
	return SHA256Bytes(b), nil
}

// HMACSHA256 returns the hex-encoded HMAC-SHA256 of b keyed by secret.
func HMACSHA256(b []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil))
}

// GenesisHash is the value used as prev_entry_hash for the first ledger
// entry: 64 hex zero characters.
var GenesisHash = strings.Repeat("0", 64)
