package ideacard

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/indicators"
)

// Load reads, validates, and freezes an IdeaCard from a YAML document on
// disk. On return the card's FeatureSpecID and IdeaHash fields are
// populated and the card must be treated as immutable (spec §3, §4.7).
func Load(path string, reg *indicators.Registry) (*IdeaCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, corerr.Wrap(corerr.DataNotFound, err, "reading idea card file")
	}
	return LoadBytes(data, reg)
}

// LoadBytes is Load without the filesystem dependency, for tests and
// embedded-document callers.
func LoadBytes(data []byte, reg *indicators.Registry) (*IdeaCard, error) {
	var card IdeaCard
	if err := yaml.Unmarshal(data, &card); err != nil {
		return nil, corerr.Wrap(corerr.InvalidIdeaCard, err, "parsing idea card YAML")
	}

	if err := Validate(&card, reg); err != nil {
		return nil, err
	}

	if err := Canonicalize(&card); err != nil {
		return nil, err
	}

	hash, err := ComputeIdeaHash(&card)
	if err != nil {
		return nil, corerr.Wrap(corerr.InvalidIdeaCard, err, "computing idea hash")
	}
	card.IdeaHash = hash

	return &card, nil
}

// Canonicalize populates every FeatureSpec's FeatureSpecID in place. It
// runs after Validate so every spec is known to be registry-valid.
func Canonicalize(card *IdeaCard) error {
	roles := []*TFConfig{&card.TFConfigs.Exec, card.TFConfigs.MedTF, card.TFConfigs.HighTF}
	for _, tfc := range roles {
		if tfc == nil {
			continue
		}
		for i := range tfc.FeatureSpecs {
			fs := &tfc.FeatureSpecs[i]
			id, err := ComputeFeatureSpecID(fs.IndicatorType, fs.Params, fs.InputSource)
			if err != nil {
				return corerr.Wrap(corerr.InvalidIdeaCard, err, "computing feature_spec_id")
			}
			fs.FeatureSpecID = id
		}
	}
	return nil
}
