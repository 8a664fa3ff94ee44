package ideacard

import (
	"encoding/json"
	"sort"

	"github.com/cryptorun/btcore/internal/canonical"
)

// canonicalParams sorts and normalizes a FeatureSpec's params map for
// hashing purposes. Params map keys already sort via canonical.JSON; this
// helper exists so callers have a stable, typed entry point.
func canonicalParams(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	normalized := make(map[string]any, len(params))
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		normalized[k] = params[k]
	}
	return normalized
}

// ComputeFeatureSpecID computes the TF-independent 12-char hash of a
// FeatureSpec's semantic identity: (indicator_type, canonicalized params,
// input_source). Multi-output expansions of the same spec share this ID.
func ComputeFeatureSpecID(indicatorType string, params map[string]any, inputSource InputSource) (string, error) {
	payload := map[string]any{
		"indicator_type": indicatorType,
		"params":         canonicalParams(params),
		"input_source":   string(inputSource),
	}
	data, err := canonical.JSON(payload)
	if err != nil {
		return "", err
	}
	return canonical.ShortHash(data, 12), nil
}

// ComputeIdeaHash computes the stable 16-hex-char hash of the compiled
// IdeaCard (spec §4.7). It is computed over a copy with the hash field
// itself cleared, so the hash is self-consistent.
func ComputeIdeaHash(card *IdeaCard) (string, error) {
	cp := *card
	cp.IdeaHash = ""
	data, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	var asMap map[string]any
	if err := json.Unmarshal(data, &asMap); err != nil {
		return "", err
	}
	canon, err := canonical.JSON(asMap)
	if err != nil {
		return "", err
	}
	return canonical.ShortHash(canon, 16), nil
}
