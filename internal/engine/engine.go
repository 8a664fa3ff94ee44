// Package engine runs the deterministic hot loop (spec §4.6, component
// C9): warm up every configured TF's feature frame, then simulate bar by
// bar — advance the snapshot, resolve the open position against intrabar
// price action, evaluate entry/exit rules, and enforce stop-condition
// precedence (liquidation > equity_floor > starvation > end_of_data).
package engine

import (
	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/engineconfig"
	"github.com/cryptorun/btcore/internal/exchange"
	"github.com/cryptorun/btcore/internal/feedstore"
	"github.com/cryptorun/btcore/internal/features"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/rules"
	"github.com/cryptorun/btcore/internal/snapshot"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// StopReason names why the simulation phase ended.
type StopReason string

const (
	StopLiquidation  StopReason = "liquidation"
	StopEquityFloor  StopReason = "equity_floor"
	StopStarvation   StopReason = "starvation"
	StopEndOfData    StopReason = "end_of_data"
)

// Result is everything a run produces for the artifact-writing stage.
type Result struct {
	Trades          []exchange.Trade
	EquityCurve     []exchange.EquityPoint
	AccountCurve    []exchange.AccountCurvePoint
	StopReason      StopReason
	BarsSimulated   int
	FinalLedger     exchange.Ledger
	RejectionCounts map[string]int
}

// Engine ties the feature/feedstore/snapshot/rules/exchange stack
// together for one symbol/IdeaCard run.
type Engine struct {
	card *ideacard.IdeaCard
	reg  *indicators.Registry
	cfg  engineconfig.Config

	feeds map[timeframe.Role]*feedstore.FeedStore
	view  *snapshot.View
	ex    *exchange.Exchange

	fundingEvents []ohlcv.FundingEvent
	fundingCursor int

	warmupEnd        int
	barsSinceLastFill int
}

// New builds the feature frames, feedstores, snapshot view, and exchange
// for one run, from already-fetched bars per configured role.
func New(card *ideacard.IdeaCard, reg *indicators.Registry, cfg engineconfig.Config, barsByRole map[timeframe.Role][]ohlcv.Bar, funding []ohlcv.FundingEvent) (*Engine, error) {
	feeds := make(map[timeframe.Role]*feedstore.FeedStore)
	maxWarmup := 0

	roleConfigs := map[timeframe.Role]*ideacard.TFConfig{
		timeframe.RoleExec: &card.TFConfigs.Exec,
	}
	if card.TFConfigs.MedTF != nil {
		roleConfigs[timeframe.RoleMedTF] = card.TFConfigs.MedTF
	}
	if card.TFConfigs.HighTF != nil {
		roleConfigs[timeframe.RoleHighTF] = card.TFConfigs.HighTF
	}

	for role, tfc := range roleConfigs {
		bars, ok := barsByRole[role]
		if !ok || len(bars) == 0 {
			return nil, corerr.Newf(corerr.DataNotFound, "no bars supplied for role %q", role).
				With(map[string]any{"role": string(role)})
		}
		frame, err := features.Build(tfc, bars, reg)
		if err != nil {
			return nil, err
		}
		fs, err := feedstore.New(card.Symbol, tfc.TF, frame)
		if err != nil {
			return nil, err
		}
		feeds[role] = fs

		warmup := frame.MaxWarmup
		if tfc.WarmupBars > warmup {
			warmup = tfc.WarmupBars
		}
		if role == timeframe.RoleExec && warmup > maxWarmup {
			maxWarmup = warmup
		}
	}

	if cfg.MinSimBars > 0 && feeds[timeframe.RoleExec].Len()-maxWarmup < cfg.MinSimBars {
		return nil, corerr.Newf(corerr.InsufficientSimBars, "only %d simulatable bars, need at least %d", feeds[timeframe.RoleExec].Len()-maxWarmup, cfg.MinSimBars).
			With(map[string]any{"available": feeds[timeframe.RoleExec].Len() - maxWarmup, "min_required": cfg.MinSimBars})
	}

	view, err := snapshot.New(feeds)
	if err != nil {
		return nil, err
	}

	exCfg := exchange.Config{
		InitialEquityUSDT:             card.Account.InitialEquityUSDT,
		MaxLeverage:                   card.Account.MaxLeverage,
		InitialMarginRate:             card.Account.InitialMarginRate,
		MaintenanceMarginRate:         card.Account.MaintenanceMarginRate,
		TakerFeeRate:                  card.Account.TakerFeeRate,
		IncludeEstCloseFeeInEntryGate: card.Account.IncludeEstCloseFeeInEntryGate,
		FundingEnabled:                card.Sim.FundingEnabled,
		OrderBookCapacity:             cfg.OrderBookCapacity,
	}

	return &Engine{
		card: card, reg: reg, cfg: cfg,
		feeds: feeds, view: view, ex: exchange.New(exCfg),
		fundingEvents: funding,
		warmupEnd:     maxWarmup,
	}, nil
}

// Run executes the warmup then simulation phases to completion or to
// whichever stop condition fires first.
func (e *Engine) Run() (*Result, error) {
	execFeed := e.feeds[timeframe.RoleExec]
	n := execFeed.Len()

	for i := 0; i < e.warmupEnd && i < n; i++ {
		if err := e.view.Advance(i); err != nil {
			return nil, err
		}
	}

	stopReason := StopEndOfData
	lastIdx := e.warmupEnd

	for i := e.warmupEnd; i < n; i++ {
		lastIdx = i
		if err := e.view.Advance(i); err != nil {
			return nil, err
		}
		b := execFeed.BarAt(i)

		ev := e.ex.ProcessBar(b)
		if ev.Liquidated {
			stopReason = StopLiquidation
			e.ex.RecordEquity(b.TSClose, b.Close)
			break
		}
		if ev.Closed || ev.Filled != nil {
			e.barsSinceLastFill = 0
		}

		e.applyDueFunding(b)

		equity := e.ex.Ledger().EquityUSDT
		if e.ex.Position().Open {
			equity += e.unrealized(b.Close)
		}
		if equity <= e.card.Stops.EquityFloorUSDT {
			e.ex.ForceClose(b.TSClose, b.Close, "equity_floor")
			e.ex.RecordEquity(b.TSClose, b.Close)
			stopReason = StopEquityFloor
			break
		}

		if e.ex.Position().Open {
			e.evaluateExit(b)
		} else {
			e.barsSinceLastFill++
			if e.card.Stops.StarvationBars > 0 && e.barsSinceLastFill >= e.card.Stops.StarvationBars {
				e.ex.RecordEquity(b.TSClose, b.Close)
				stopReason = StopStarvation
				break
			}
			e.evaluateEntry(b)
		}

		e.ex.RecordEquity(b.TSClose, b.Close)
	}

	if stopReason == StopEndOfData && e.ex.Position().Open {
		b := execFeed.BarAt(lastIdx)
		e.ex.ForceClose(b.TSClose, b.Close, "end_of_data")
		e.ex.RecordEquity(b.TSClose, b.Close)
	}

	return &Result{
		Trades:          e.ex.Trades(),
		EquityCurve:     e.ex.EquityCurve(),
		AccountCurve:    e.ex.AccountCurve(),
		StopReason:      stopReason,
		BarsSimulated:   lastIdx - e.warmupEnd + 1,
		FinalLedger:     e.ex.Ledger(),
		RejectionCounts: e.ex.RejectionCounts(),
	}, nil
}

func (e *Engine) unrealized(markPrice float64) float64 {
	pos := e.ex.Position()
	diff := markPrice - pos.EntryPrice
	if pos.Side == exchange.SideShort {
		diff = -diff
	}
	return diff * pos.Qty
}

func (e *Engine) applyDueFunding(b ohlcv.Bar) {
	for e.fundingCursor < len(e.fundingEvents) && e.fundingEvents[e.fundingCursor].TS <= b.TSClose {
		evt := e.fundingEvents[e.fundingCursor]
		e.ex.ApplyFunding(evt.Rate, b.Close)
		e.fundingCursor++
	}
}

func (e *Engine) evaluateExit(b ohlcv.Bar) {
	if e.card.Rules.Exit == nil {
		return
	}
	ok, err := rules.Eval(e.card.Rules.Exit, e.view)
	if err != nil || !ok {
		return
	}
	e.ex.ForceClose(b.TSClose, b.Close, "rule_exit")
	e.barsSinceLastFill = 0
}

func (e *Engine) evaluateEntry(b ohlcv.Bar) {
	longOK, _ := rules.Eval(e.card.Rules.EntryLong, e.view)
	shortOK, _ := rules.Eval(e.card.Rules.EntryShort, e.view)
	if !longOK && !shortOK {
		return
	}

	side := exchange.SideLong
	if shortOK && !longOK {
		side = exchange.SideShort
	}

	atr, err := e.view.Get(snapshot.FeatureRef{Key: e.card.Risk.SL.ATRKey, Role: timeframe.RoleExec, Offset: 0})
	if err != nil {
		return
	}
	slDist := atr * e.card.Risk.SL.ATRMult
	if slDist <= 0 {
		return
	}
	tpDist := slDist * e.card.Risk.TP.RMultiple

	entryPrice := b.Close
	var slPrice, tpPrice float64
	if side == exchange.SideLong {
		slPrice = entryPrice - slDist
		tpPrice = entryPrice + tpDist
	} else {
		slPrice = entryPrice + slDist
		tpPrice = entryPrice - tpDist
	}

	_, err = e.ex.SubmitEntry(side, b.TSClose, entryPrice, slPrice, tpPrice, e.card.Risk.RiskPerTradePct)
	if err == nil {
		e.barsSinceLastFill = 0
	}
}
