package ideacard

import (
	"regexp"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/timeframe"
)

var symbolRE = regexp.MustCompile(`^[A-Z0-9]+USDT$`)

// Validate checks a decoded IdeaCard against the registry and the fixed
// account-model locks this core supports (spec §3, §4.5, §9). It never
// mutates the card.
func Validate(card *IdeaCard, reg *indicators.Registry) error {
	if !symbolRE.MatchString(card.Symbol) {
		return corerr.Newf(corerr.InvalidSymbol, "symbol %q does not match ^[A-Z0-9]+USDT$", card.Symbol).
			With(map[string]any{"symbol": card.Symbol})
	}

	// These four fields are fixed by the account model this core supports
	// (spec §3, §9): any other value is a mode the engine cannot simulate,
	// not merely a malformed card, so it's UNSUPPORTED_MODE rather than
	// INVALID_IDEA_CARD.
	if card.Account.MarginMode != "isolated" {
		return corerr.Newf(corerr.UnsupportedMode, "margin_mode must be \"isolated\", got %q", card.Account.MarginMode).
			With(map[string]any{"margin_mode": card.Account.MarginMode})
	}
	if card.Account.PositionMode != "one_way" {
		return corerr.Newf(corerr.UnsupportedMode, "position_mode must be \"one_way\", got %q", card.Account.PositionMode).
			With(map[string]any{"position_mode": card.Account.PositionMode})
	}
	if card.Account.InstrumentType != "linear_perp" {
		return corerr.Newf(corerr.UnsupportedMode, "instrument_type must be \"linear_perp\", got %q", card.Account.InstrumentType).
			With(map[string]any{"instrument_type": card.Account.InstrumentType})
	}
	if card.Account.MarkSource != MarkSourceClose {
		return corerr.Newf(corerr.UnsupportedMode, "mark_source must be \"close\", got %q", card.Account.MarkSource).
			With(map[string]any{"mark_source": string(card.Account.MarkSource)})
	}

	if card.Risk.SL.ATRKey == "" {
		return corerr.New(corerr.InvalidIdeaCard, "risk.sl.atr_key is required")
	}
	if card.Risk.SL.ATRMult <= 0 {
		return corerr.New(corerr.InvalidIdeaCard, "risk.sl.atr_mult must be > 0")
	}
	if card.Risk.TP.RMultiple <= 0 {
		return corerr.New(corerr.InvalidIdeaCard, "risk.tp.r_multiple must be > 0")
	}
	if card.Risk.RiskPerTradePct <= 0 {
		return corerr.New(corerr.InvalidIdeaCard, "risk.risk_per_trade_pct must be > 0")
	}

	if card.TFConfigs.Exec.TF == "" {
		return corerr.New(corerr.InvalidIdeaCard, "tf_configs.exec is required")
	}

	if err := validateTFConfig(&card.TFConfigs.Exec, reg); err != nil {
		return err
	}
	if card.TFConfigs.MedTF != nil {
		if err := validateTFConfig(card.TFConfigs.MedTF, reg); err != nil {
			return err
		}
	}
	if card.TFConfigs.HighTF != nil {
		if err := validateTFConfig(card.TFConfigs.HighTF, reg); err != nil {
			return err
		}
	}

	if card.Rules.EntryLong == nil && card.Rules.EntryShort == nil {
		return corerr.New(corerr.InvalidIdeaCard, "at least one of rules.entry_long/entry_short is required")
	}

	return nil
}

func validateTFConfig(tfc *TFConfig, reg *indicators.Registry) error {
	if !timeframe.Valid(tfc.TF) {
		return corerr.Newf(corerr.InvalidIdeaCard, "unrecognized timeframe %q", string(tfc.TF)).
			With(map[string]any{"tf": string(tfc.TF)})
	}
	seen := make(map[string]bool, len(tfc.FeatureSpecs))
	for i := range tfc.FeatureSpecs {
		fs := &tfc.FeatureSpecs[i]
		if fs.OutputKey == "" {
			return corerr.Newf(corerr.InvalidIdeaCard, "feature_specs[%d] missing output_key", i)
		}
		if seen[fs.OutputKey] {
			return corerr.Newf(corerr.InvalidIdeaCard, "duplicate output_key %q on tf %q", fs.OutputKey, string(tfc.TF)).
				With(map[string]any{"output_key": fs.OutputKey, "tf": string(tfc.TF)})
		}
		seen[fs.OutputKey] = true

		if err := reg.Validate(fs.IndicatorType, fs.Params, fs.InputSource); err != nil {
			return err
		}
		if fs.InputSource == InputIndicator && fs.InputIndicatorKey == "" {
			return corerr.Newf(corerr.InvalidIdeaCard, "feature_specs[%d] input_source=indicator requires input_indicator_key", i)
		}
	}
	return nil
}
