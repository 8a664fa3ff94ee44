// Package ideacard models the declarative strategy specification (spec
// §3, component C3): symbol, per-role timeframe configs, indicator
// feature specs, entry/exit rule trees, risk model, and account/fee
// parameters. An IdeaCard is frozen after Load and is the root object the
// rest of the core hashes and replays deterministically.
package ideacard

import (
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// InputSource enumerates what a FeatureSpec computes from. The type lives
// in the indicators package so the registry has no reverse dependency on
// this package; IdeaCard reuses it directly.
type InputSource = indicators.InputSource

const (
	InputClose     = indicators.InputClose
	InputOpen      = indicators.InputOpen
	InputHigh      = indicators.InputHigh
	InputLow       = indicators.InputLow
	InputVolume    = indicators.InputVolume
	InputHLC3      = indicators.InputHLC3
	InputOHLC4     = indicators.InputOHLC4
	InputIndicator = indicators.InputIndicator
)

// FeatureSpec declares one indicator computation (spec §3).
type FeatureSpec struct {
	IndicatorType     string         `yaml:"indicator_type"`
	OutputKey         string         `yaml:"output_key"`
	Params            map[string]any `yaml:"params"`
	InputSource       InputSource    `yaml:"input_source"`
	InputIndicatorKey string         `yaml:"input_indicator_key,omitempty"`

	// FeatureSpecID is populated by Load via Canonicalize; TF-independent.
	FeatureSpecID string `yaml:"-"`
}

// TFConfig is one role's timeframe + indicator configuration.
type TFConfig struct {
	TF           timeframe.TF  `yaml:"tf"`
	FeatureSpecs []FeatureSpec `yaml:"feature_specs"`
	WarmupBars   int           `yaml:"warmup_bars"`
	DelayBars    int           `yaml:"delay_bars"`
}

// Operator is a comparison/cross operator usable in a rule condition.
type Operator string

const (
	OpGT          Operator = ">"
	OpLT          Operator = "<"
	OpGE          Operator = ">="
	OpLE          Operator = "<="
	OpEQ          Operator = "=="
	OpCrossAbove  Operator = "cross_above"
	OpCrossBelow  Operator = "cross_below"
)

// FeatureRef points at one scalar in the runtime snapshot: a feature key
// (or "open"/"high"/"low"/"close"/"volume" for raw OHLCV), on a given TF
// role, at a given lookback offset.
type FeatureRef struct {
	Key    string        `yaml:"key"`
	Role   timeframe.Role `yaml:"tf_role"`
	Offset int           `yaml:"offset"`
}

// Condition is one leaf comparison: Left <op> Right, where Right is
// either a constant or another FeatureRef.
type Condition struct {
	Op           Operator    `yaml:"op"`
	Left         FeatureRef  `yaml:"left"`
	RightConst   *float64    `yaml:"right_const,omitempty"`
	RightFeature *FeatureRef `yaml:"right_feature,omitempty"`
}

// RuleExprKind discriminates the boolean-tree node types.
type RuleExprKind string

const (
	RuleAnd  RuleExprKind = "and"
	RuleOr   RuleExprKind = "or"
	RuleNot  RuleExprKind = "not"
	RuleLeaf RuleExprKind = "cond"
)

// RuleExpr is a node in a boolean expression tree over feature
// comparisons (spec §6: rules.entry_long/entry_short/exit).
type RuleExpr struct {
	Kind     RuleExprKind `yaml:"kind"`
	Children []*RuleExpr  `yaml:"children,omitempty"`
	Cond     *Condition   `yaml:"cond,omitempty"`
}

// Rules bundles the three rule trees an IdeaCard may declare.
type Rules struct {
	EntryLong  *RuleExpr `yaml:"entry_long,omitempty"`
	EntryShort *RuleExpr `yaml:"entry_short,omitempty"`
	Exit       *RuleExpr `yaml:"exit,omitempty"`
}

// StopLossModel computes the SL level at entry from an ATR-keyed feature.
type StopLossModel struct {
	ATRKey  string  `yaml:"atr_key"`
	ATRMult float64 `yaml:"atr_mult"`
}

// TakeProfitModel computes the TP level at entry as an R-multiple of the
// stop distance.
type TakeProfitModel struct {
	RMultiple float64 `yaml:"r_multiple"`
}

// Risk is the sizing/stop model. No silent defaults: Load rejects an
// IdeaCard missing any of these fields (spec §4.6).
type Risk struct {
	SL               StopLossModel   `yaml:"sl"`
	TP               TakeProfitModel `yaml:"tp"`
	RiskPerTradePct  float64         `yaml:"risk_per_trade_pct"`
}

// MarkSource is locked to "close" in this version (spec §4.5, §9 open
// question resolved in DESIGN.md).
type MarkSource string

const MarkSourceClose MarkSource = "close"

// Account carries ledger/margin/fee configuration.
type Account struct {
	InitialEquityUSDT               float64    `yaml:"initial_equity_usdt"`
	MaxLeverage                     float64    `yaml:"max_leverage"`
	InitialMarginRate               float64    `yaml:"initial_margin_rate,omitempty"` // overrides 1/MaxLeverage if set
	MaintenanceMarginRate           float64    `yaml:"maintenance_margin_rate"`
	TakerFeeRate                    float64    `yaml:"taker_fee_rate"`
	IncludeEstCloseFeeInEntryGate   bool       `yaml:"include_est_close_fee_in_entry_gate"`
	MarkSource                      MarkSource `yaml:"mark_source"`
	MarginMode                      string     `yaml:"margin_mode"` // must be "isolated"
	PositionMode                    string     `yaml:"position_mode"` // must be "one_way"
	InstrumentType                 string     `yaml:"instrument_type"` // must be "linear_perp"
}

// Stops carries engine-level stop-condition thresholds.
type Stops struct {
	EquityFloorUSDT float64 `yaml:"equity_floor_usdt"`
	StarvationBars  int     `yaml:"starvation_bars"`
}

// SimConfig carries simulation-wide toggles.
type SimConfig struct {
	FundingEnabled bool `yaml:"funding_enabled"`
}

// TFConfigs bundles the three role configurations. Exec is required.
type TFConfigs struct {
	Exec   TFConfig  `yaml:"exec"`
	MedTF  *TFConfig `yaml:"med_tf,omitempty"`
	HighTF *TFConfig `yaml:"high_tf,omitempty"`
}

// IdeaCard is the root, frozen strategy specification.
type IdeaCard struct {
	ID        string    `yaml:"id"`
	Symbol    string    `yaml:"symbol"`
	TFConfigs TFConfigs `yaml:"tf_configs"`
	Rules     Rules     `yaml:"rules"`
	Risk      Risk      `yaml:"risk"`
	Account   Account   `yaml:"account"`
	Stops     Stops     `yaml:"stops"`
	Sim       SimConfig `yaml:"sim"`

	// IdeaHash is populated by Load; a stable hash over the canonical
	// document (spec §4.7).
	IdeaHash string `yaml:"-"`
}

// Role returns the TFConfig for a role, or nil if not configured.
func (c *IdeaCard) Role(role timeframe.Role) *TFConfig {
	switch role {
	case timeframe.RoleExec:
		return &c.TFConfigs.Exec
	case timeframe.RoleMedTF:
		return c.TFConfigs.MedTF
	case timeframe.RoleHighTF:
		return c.TFConfigs.HighTF
	default:
		return nil
	}
}
