// Package preflight runs the pre-run audits spec §4.8 requires before a
// simulation starts (component C11): data coverage, warmup feasibility,
// funding coverage, and indicator math-parity self-checks. A failing
// preflight report means the engine must refuse to run rather than
// silently producing a short or misleading backtest.
package preflight

import (
	"fmt"
	"math"

	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// Check is one named audit result.
type Check struct {
	Name    string
	Passed  bool
	Message string
}

// Report bundles every check run for one IdeaCard/dataset pairing.
type Report struct {
	Checks []Check
	Passed bool
}

func (r *Report) add(name string, passed bool, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Message: msg})
	if !passed {
		r.Passed = false
	}
}

// Run executes every audit and returns the combined report. It never
// returns an error itself — a failed audit is recorded as a failing
// Check, not a Go error, so a caller always gets the full picture.
func Run(card *ideacard.IdeaCard, reg *indicators.Registry, barsByRole map[timeframe.Role][]ohlcv.Bar, funding []ohlcv.FundingEvent, minSimBars int) *Report {
	r := &Report{Passed: true}

	checkDataCoverage(r, card, barsByRole)
	checkWarmupFeasibility(r, card, reg, barsByRole, minSimBars)
	checkFundingCoverage(r, card, barsByRole, funding)
	checkIndicatorCompilability(r, card, reg)
	checkMathParity(r, reg)

	return r
}

func checkDataCoverage(r *Report, card *ideacard.IdeaCard, barsByRole map[timeframe.Role][]ohlcv.Bar) {
	roles := []timeframe.Role{timeframe.RoleExec, timeframe.RoleMedTF, timeframe.RoleHighTF}
	for _, role := range roles {
		tfc := card.Role(role)
		if tfc == nil {
			continue
		}
		bars, ok := barsByRole[role]
		if !ok || len(bars) == 0 {
			r.add("data_coverage:"+string(role), false, "no bars available for role %q (tf=%s)", role, tfc.TF)
			continue
		}
		gaps := countGaps(bars, tfc.TF)
		if gaps > 0 {
			r.add("data_coverage:"+string(role), false, "%d timestamp gaps detected in role %q", gaps, role)
			continue
		}
		r.add("data_coverage:"+string(role), true, "%d contiguous bars", len(bars))
	}
}

func countGaps(bars []ohlcv.Bar, tf timeframe.TF) int {
	stepMS, err := timeframe.DurationMS(tf)
	if err != nil {
		return 0
	}
	gaps := 0
	for i := 1; i < len(bars); i++ {
		if bars[i].TSOpen != bars[i-1].TSOpen+stepMS {
			gaps++
		}
	}
	return gaps
}

func checkWarmupFeasibility(r *Report, card *ideacard.IdeaCard, reg *indicators.Registry, barsByRole map[timeframe.Role][]ohlcv.Bar, minSimBars int) {
	roles := []timeframe.Role{timeframe.RoleExec, timeframe.RoleMedTF, timeframe.RoleHighTF}
	for _, role := range roles {
		tfc := card.Role(role)
		if tfc == nil {
			continue
		}
		bars := barsByRole[role]
		warmup := 0
		for _, fs := range tfc.FeatureSpecs {
			w, err := reg.WarmupBars(fs.IndicatorType, fs.Params)
			if err != nil {
				continue
			}
			if w > warmup {
				warmup = w
			}
		}
		if tfc.WarmupBars > warmup {
			warmup = tfc.WarmupBars
		}
		remaining := len(bars) - warmup
		if role == timeframe.RoleExec && remaining < minSimBars {
			r.add("warmup_feasibility:"+string(role), false,
				"only %d simulatable bars after %d warmup bars, need >= %d", remaining, warmup, minSimBars)
			continue
		}
		if remaining < 0 {
			r.add("warmup_feasibility:"+string(role), false, "warmup (%d bars) exceeds available history (%d bars)", warmup, len(bars))
			continue
		}
		r.add("warmup_feasibility:"+string(role), true, "%d bars remain after %d warmup bars", remaining, warmup)
	}
}

func checkFundingCoverage(r *Report, card *ideacard.IdeaCard, barsByRole map[timeframe.Role][]ohlcv.Bar, funding []ohlcv.FundingEvent) {
	if !card.Sim.FundingEnabled {
		r.add("funding_coverage", true, "funding disabled for this run")
		return
	}
	execBars := barsByRole[timeframe.RoleExec]
	if len(execBars) == 0 {
		r.add("funding_coverage", false, "no exec bars to check funding coverage against")
		return
	}
	if len(funding) == 0 {
		r.add("funding_coverage", false, "funding enabled but zero funding events supplied")
		return
	}
	start, end := execBars[0].TSOpen, execBars[len(execBars)-1].TSClose
	covered := 0
	for _, f := range funding {
		if f.TS >= start && f.TS <= end {
			covered++
		}
	}
	if covered == 0 {
		r.add("funding_coverage", false, "no funding events fall within the simulated window [%d,%d]", start, end)
		return
	}
	r.add("funding_coverage", true, "%d funding events within the simulated window", covered)
}

func checkIndicatorCompilability(r *Report, card *ideacard.IdeaCard, reg *indicators.Registry) {
	roles := []timeframe.Role{timeframe.RoleExec, timeframe.RoleMedTF, timeframe.RoleHighTF}
	ok := true
	count := 0
	for _, role := range roles {
		tfc := card.Role(role)
		if tfc == nil {
			continue
		}
		for _, fs := range tfc.FeatureSpecs {
			count++
			if err := reg.Validate(fs.IndicatorType, fs.Params, fs.InputSource); err != nil {
				r.add("indicator_compilability:"+fs.OutputKey, false, "%v", err)
				ok = false
			}
		}
	}
	if ok {
		r.add("indicator_compilability", true, "%d feature specs validated against the registry", count)
	}
}

// checkMathParity is a self-consistency audit: it recomputes a small
// known series with sma through two independent summation orders
// (forward running-sum vs a fresh windowed sum per index) and confirms
// they agree within floating-point tolerance. It catches accidental
// accumulation-order regressions in the registry's compute kernels
// without needing a second-language reference implementation.
func checkMathParity(r *Report, reg *indicators.Registry) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	period := 3

	entry, err := reg.Lookup("sma")
	if err != nil {
		r.add("math_parity:sma", false, "sma indicator not registered: %v", err)
		return
	}
	out, err := entry.Compute(indicators.Series{Primary: series}, map[string]any{"period": period})
	if err != nil {
		r.add("math_parity:sma", false, "sma compute failed: %v", err)
		return
	}
	fast := out["value"]

	for i := period - 1; i < len(series); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += series[j]
		}
		want := sum / float64(period)
		got := fast[i]
		if math.Abs(want-got) > 1e-9 {
			r.add("math_parity:sma", false, "index %d: running-sum result %.12f disagrees with windowed-sum result %.12f", i, got, want)
			return
		}
	}
	r.add("math_parity:sma", true, "sma running-sum and windowed-sum agree to 1e-9")
}
