// Package engineconfig decodes the engine-wide (non-strategy) tunables:
// order book capacity, in-memory history window size, and the minimum
// simulation bar count below which a run is rejected outright. Kept
// separate from ideacard because these values are operational, not part
// of a strategy's hashed identity.
package engineconfig

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/cryptorun/btcore/internal/corerr"
)

// Config is the engine-wide tunable set.
type Config struct {
	OrderBookCapacity   int `yaml:"order_book_capacity"`
	HistoryWindowMaxLen int `yaml:"history_window_max_len"`
	MinSimBars          int `yaml:"min_sim_bars"`
}

// Default returns the documented defaults (spec §4.6/§9).
func Default() Config {
	return Config{
		OrderBookCapacity:   100,
		HistoryWindowMaxLen: 200,
		MinSimBars:          10,
	}
}

// Load reads and decodes a Config, filling any zero-valued field from
// Default() rather than leaving it at Go's bare zero value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, corerr.Wrap(corerr.DataNotFound, err, "reading engine config file")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, corerr.Wrap(corerr.UnsupportedMode, err, "parsing engine config YAML")
	}
	if cfg.OrderBookCapacity <= 0 {
		cfg.OrderBookCapacity = Default().OrderBookCapacity
	}
	if cfg.HistoryWindowMaxLen <= 0 {
		cfg.HistoryWindowMaxLen = Default().HistoryWindowMaxLen
	}
	if cfg.MinSimBars <= 0 {
		cfg.MinSimBars = Default().MinSimBars
	}
	return cfg, nil
}
