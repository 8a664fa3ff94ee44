// Package canonical implements the single canonicalization rule the
// entire core relies on for reproducible hashing (spec §4.7): sorted map
// keys, nil entries stripped, full float precision. encoding/json already
// sorts string map keys on Marshal, so this package only needs to strip
// nils before handing off to it.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// StripNils recursively removes nil-valued map entries so two logically
// equal documents (one with an explicit null, one with the key simply
// absent) canonicalize identically.
func StripNils(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = StripNils(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = StripNils(val)
		}
		return out
	default:
		return v
	}
}

// JSON renders v with nils stripped and keys sorted (the latter is
// encoding/json's native map behavior).
func JSON(v any) ([]byte, error) {
	return json.Marshal(StripNils(v))
}

// ShortHash returns the first hexLen hex characters of the document's
// SHA-256 digest (16 for idea_hash, 12 for feature_spec_id, per §4.7).
func ShortHash(data []byte, hexLen int) string {
	sum := sha256.Sum256(data)
	full := hex.EncodeToString(sum[:])
	if hexLen >= len(full) {
		return full
	}
	return full[:hexLen]
}
