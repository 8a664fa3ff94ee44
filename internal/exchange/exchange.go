package exchange

import (
	"math"

	"github.com/cryptorun/btcore/internal/corerr"
)

// BarEvent reports what happened to the open position (if any) while
// processing one bar, so the hot loop can react without the exchange
// reaching back into engine-level stop-condition logic.
type BarEvent struct {
	Liquidated      bool
	Closed          bool
	EntriesDisabled bool
	Trade           *Trade
	Filled          *Order
	Rejected        *Order
}

// Exchange is the simulated venue. One Exchange tracks at most one open
// position, per spec's one_way/isolated-margin account model.
type Exchange struct {
	cfg Config

	position        Position
	ledger          Ledger
	entriesDisabled bool

	pendingOrders []Order
	pending       *pendingIntent
	trades        []Trade
	equityCurve   []EquityPoint
	accountCurve  []AccountCurvePoint

	nextOrderID int64
	nextTradeID int64

	mfe, mae   float64 // tracked while a position is open, reset when an entry fills
	equityPeak float64 // high-water mark for drawdown recording

	rejectionCounts map[string]int
}

// New builds an Exchange with the account's starting equity.
func New(cfg Config) *Exchange {
	return &Exchange{
		cfg:             cfg,
		ledger:          Ledger{EquityUSDT: cfg.InitialEquityUSDT},
		equityPeak:      cfg.InitialEquityUSDT,
		rejectionCounts: make(map[string]int),
	}
}

// RejectionCounts returns a per-reason tally of rejected entry attempts
// (INSUFFICIENT_MARGIN, DUPLICATE_PENDING_ORDER, ORDER_BOOK_FULL,
// ENTRIES_DISABLED), mirroring the teacher's GuardStats.
func (ex *Exchange) RejectionCounts() map[string]int {
	out := make(map[string]int, len(ex.rejectionCounts))
	for k, v := range ex.rejectionCounts {
		out[k] = v
	}
	return out
}

// Ledger returns a copy of the current ledger state.
func (ex *Exchange) Ledger() Ledger { return ex.ledger }

// Position returns a copy of the current position state.
func (ex *Exchange) Position() Position { return ex.position }

// Trades returns every closed trade so far, in fill order.
func (ex *Exchange) Trades() []Trade { return ex.trades }

// EquityCurve returns every recorded equity point so far.
func (ex *Exchange) EquityCurve() []EquityPoint { return ex.equityCurve }

// AccountCurve returns every recorded account-curve point so far.
func (ex *Exchange) AccountCurve() []AccountCurvePoint { return ex.accountCurve }

// EntriesDisabled reports whether the liquidation latch has tripped.
func (ex *Exchange) EntriesDisabled() bool { return ex.entriesDisabled }

// RecordEquity appends an equity-curve sample and an account-curve sample
// at ts using the current ledger equity plus any open position's
// unrealized PnL. Equity's drawdown fields track the high-water mark
// across the whole run so far; the account-curve sample carries the
// margin-usage breakdown spec §6 requires alongside it.
func (ex *Exchange) RecordEquity(ts int64, markPrice float64) {
	equity := ex.ledger.EquityUSDT
	if ex.position.Open {
		equity += ex.unrealizedPnL(markPrice)
	}
	if equity > ex.equityPeak {
		ex.equityPeak = equity
	}
	ddAbs := ex.equityPeak - equity
	ddPct := 0.0
	if ex.equityPeak > 0 {
		ddPct = 100 * ddAbs / ex.equityPeak
	}
	ex.equityCurve = append(ex.equityCurve, EquityPoint{TS: ts, Equity: equity, DrawdownAbs: ddAbs, DrawdownPct: ddPct})

	var used, maint float64
	if ex.position.Open {
		notional := ex.position.Qty * markPrice
		used = notional * ex.cfg.marginRate()
		maint = notional * ex.cfg.MaintenanceMarginRate
	}
	free := equity - used
	available := free
	if available < 0 {
		available = 0
	}
	ex.accountCurve = append(ex.accountCurve, AccountCurvePoint{
		TS: ts, EquityUSDT: equity, UsedMarginUSDT: used, FreeMarginUSDT: free,
		AvailableBalanceUSDT: available, MaintenanceMarginUSDT: maint,
		HasPosition: ex.position.Open, EntriesDisabled: ex.entriesDisabled,
	})
}

func (ex *Exchange) unrealizedPnL(markPrice float64) float64 {
	if !ex.position.Open {
		return 0
	}
	diff := markPrice - ex.position.EntryPrice
	if ex.position.Side == SideShort {
		diff = -diff
	}
	return diff * ex.position.Qty
}

// SubmitEntry enqueues a MARKET entry order (spec §4.5 step 4/6): guard
// checks (entries disabled, an already-open position, a duplicate
// pending order, an order-book-capacity breach) run now, at submit time.
// entryPrice is the signal-time reference price used to size the
// position; pricing and the margin gate run later, at fill time, against
// the following bar's open — so this never returns a filled order.
func (ex *Exchange) SubmitEntry(side Side, ts int64, entryPrice, slPrice, tpPrice, riskPerTradePct float64) (*Order, error) {
	if ex.entriesDisabled {
		ex.rejectionCounts["ENTRIES_DISABLED"]++
		return nil, corerr.New(corerr.EntriesDisabled, "entries are disabled after liquidation")
	}
	if ex.position.Open {
		ex.rejectionCounts["DUPLICATE_PENDING_ORDER"]++
		return nil, corerr.New(corerr.DuplicatePendingOrder, "a position is already open")
	}
	if ex.pending != nil {
		ex.rejectionCounts["DUPLICATE_PENDING_ORDER"]++
		return nil, corerr.New(corerr.DuplicatePendingOrder, "an entry order is already pending")
	}
	if ex.cfg.OrderBookCapacity > 0 && len(ex.pendingOrders) >= ex.cfg.OrderBookCapacity {
		ex.rejectionCounts["ORDER_BOOK_FULL"]++
		return nil, corerr.New(corerr.OrderBookFull, "order book at capacity")
	}

	ex.nextOrderID++
	order := Order{ID: ex.nextOrderID, Side: side, RequestedAt: ts, Status: OrderPending}
	ex.pendingOrders = append(ex.pendingOrders, order)
	ex.pending = &pendingIntent{
		order: order, side: side, entryPrice: entryPrice,
		slPrice: slPrice, tpPrice: tpPrice, riskPerTradePct: riskPerTradePct,
	}
	return &order, nil
}

// slippagePrice applies Config.SlippageBps against the trader: a long
// entry pays up, a short entry receives down.
func (ex *Exchange) slippagePrice(side Side, basePrice float64) float64 {
	adj := basePrice * ex.cfg.SlippageBps / 10000
	if side == SideLong {
		return basePrice + adj
	}
	return basePrice - adj
}

// fillPendingEntry resolves a queued entry order at bar.Open (spec §4.5
// steps 4-5): prices with slippage, then runs the margin entry gate.
// Insufficient margin rejects the order; it does not requeue.
func (ex *Exchange) fillPendingEntry(b bar) BarEvent {
	intent := ex.pending
	if intent == nil {
		return BarEvent{}
	}
	ex.pending = nil
	ex.removePendingOrder(intent.order.ID)

	fillPrice := ex.slippagePrice(intent.side, b.Open)
	stopDistance := math.Abs(intent.entryPrice - intent.slPrice)
	if stopDistance <= 0 {
		ex.rejectionCounts["INSUFFICIENT_MARGIN"]++
		rejected := intent.order
		rejected.Status = OrderRejected
		rejected.RejectKind = "INSUFFICIENT_MARGIN"
		return BarEvent{Rejected: &rejected}
	}

	riskUSDT := ex.ledger.EquityUSDT * intent.riskPerTradePct / 100
	qty := riskUSDT / stopDistance
	notional := qty * fillPrice
	imr := ex.cfg.marginRate()
	requiredMargin := notional * imr
	entryFee := notional * ex.cfg.TakerFeeRate
	estCost := requiredMargin + entryFee
	if ex.cfg.IncludeEstCloseFeeInEntryGate {
		estCost += notional * ex.cfg.TakerFeeRate
	}
	if estCost > ex.ledger.EquityUSDT {
		ex.rejectionCounts["INSUFFICIENT_MARGIN"]++
		rejected := intent.order
		rejected.Status = OrderRejected
		rejected.RejectKind = "INSUFFICIENT_MARGIN"
		return BarEvent{Rejected: &rejected}
	}

	ex.ledger.EquityUSDT -= entryFee
	ex.ledger.FeesPaidUSDT += entryFee

	ex.position = Position{
		Open: true, Side: intent.side, Qty: qty, EntryPrice: fillPrice, EntryTS: b.TSOpen,
		Leverage: 1 / imr, Margin: requiredMargin,
		StopLoss: intent.slPrice, TakeProfit: intent.tpPrice,
		LiqPrice: liquidationPrice(intent.side, fillPrice, imr, ex.cfg.MaintenanceMarginRate),
	}
	ex.mfe, ex.mae = 0, 0

	filled := intent.order
	filled.Status = OrderFilled
	filled.FillPrice = fillPrice
	filled.FillTS = b.TSOpen
	return BarEvent{Filled: &filled}
}

func (ex *Exchange) removePendingOrder(id int64) {
	for i, o := range ex.pendingOrders {
		if o.ID == id {
			ex.pendingOrders = append(ex.pendingOrders[:i], ex.pendingOrders[i+1:]...)
			return
		}
	}
}

// liquidationPrice is the standard isolated-margin approximation: the
// price at which unrealized loss consumes the initial margin down to the
// maintenance threshold, ignoring fees.
func liquidationPrice(side Side, entry, imr, mmr float64) float64 {
	if side == SideLong {
		return entry * (1 - imr + mmr)
	}
	return entry * (1 + imr - mmr)
}

// ProcessBar runs one bar through the exchange pipeline in spec §4.5
// order: intrabar TP/SL against the position carried in from the
// previous bar (SL wins a same-bar tie against TP), then any queued
// entry order fills at this bar's open, then a liquidation check against
// whichever position is open at the end of the bar.
func (ex *Exchange) ProcessBar(b bar) BarEvent {
	// Invariant: a pending entry order only exists while no position is
	// open (SubmitEntry rejects new entries while positioned), so these
	// two branches never both apply to the same bar.
	if ex.position.Open {
		ex.trackExcursion(b)
		slHit, tpHit := ex.checkStops(b)
		if slHit {
			return ex.closePosition(b.TSClose, ex.position.StopLoss, "stop_loss")
		}
		if tpHit {
			return ex.closePosition(b.TSClose, ex.position.TakeProfit, "take_profit")
		}
		if liquidated, liqEvent := ex.checkLiquidation(b); liquidated {
			return liqEvent
		}
		return BarEvent{}
	}

	fillEvent := ex.fillPendingEntry(b)
	if ex.position.Open {
		if liquidated, liqEvent := ex.checkLiquidation(b); liquidated {
			return liqEvent
		}
	}
	return fillEvent
}

func (ex *Exchange) trackExcursion(b bar) {
	pos := ex.position
	var favorable, adverse float64
	if pos.Side == SideLong {
		favorable = b.High - pos.EntryPrice
		adverse = pos.EntryPrice - b.Low
	} else {
		favorable = pos.EntryPrice - b.Low
		adverse = b.High - pos.EntryPrice
	}
	if favorable > ex.mfe {
		ex.mfe = favorable
	}
	if adverse > ex.mae {
		ex.mae = adverse
	}
}

func (ex *Exchange) checkLiquidation(b bar) (bool, BarEvent) {
	pos := ex.position
	triggered := false
	if pos.Side == SideLong && b.Low <= pos.LiqPrice {
		triggered = true
	}
	if pos.Side == SideShort && b.High >= pos.LiqPrice {
		triggered = true
	}
	if !triggered {
		return false, BarEvent{}
	}
	ev := ex.closePosition(b.TSClose, pos.LiqPrice, "liquidation")
	ev.Liquidated = true
	ex.entriesDisabled = true
	ev.EntriesDisabled = true
	return true, ev
}

// checkStops reports whether SL and/or TP were touched intrabar. The
// caller resolves the tie: SL always wins when both are true.
func (ex *Exchange) checkStops(b bar) (slHit, tpHit bool) {
	pos := ex.position
	if pos.Side == SideLong {
		slHit = b.Low <= pos.StopLoss
		tpHit = b.High >= pos.TakeProfit
	} else {
		slHit = b.High >= pos.StopLoss
		tpHit = b.Low <= pos.TakeProfit
	}
	return
}

// ForceClose closes the open position at markPrice for a non-price-
// triggered reason (equity floor, starvation, end of data).
func (ex *Exchange) ForceClose(ts int64, markPrice float64, reason string) BarEvent {
	if !ex.position.Open {
		return BarEvent{}
	}
	return ex.closePosition(ts, markPrice, reason)
}

func (ex *Exchange) closePosition(ts int64, exitPrice float64, reason string) BarEvent {
	pos := ex.position
	notional := pos.Qty * exitPrice
	exitFee := notional * ex.cfg.TakerFeeRate
	pnl := ex.unrealizedPnL(exitPrice)

	ex.ledger.EquityUSDT += pnl - exitFee
	ex.ledger.RealizedPnL += pnl
	ex.ledger.FeesPaidUSDT += exitFee

	ex.nextTradeID++
	trade := Trade{
		ID: ex.nextTradeID, Side: pos.Side, EntryPrice: pos.EntryPrice, ExitPrice: exitPrice,
		Qty: pos.Qty, EntryTS: pos.EntryTS, ExitTS: ts, PnLUSDT: pnl - exitFee, FeesUSDT: exitFee,
		ExitReason: reason, MaxFavorableExcursion: ex.mfe, MaxAdverseExcursion: ex.mae,
	}
	ex.trades = append(ex.trades, trade)
	ex.position = Position{}

	return BarEvent{Closed: true, Trade: &ex.trades[len(ex.trades)-1]}
}

// ApplyFunding applies one funding payment against the open position.
// Longs pay positive rates, shorts receive them (Bybit convention).
func (ex *Exchange) ApplyFunding(rate float64, markPrice float64) {
	if !ex.cfg.FundingEnabled || !ex.position.Open {
		return
	}
	notional := ex.position.Qty * markPrice
	payment := notional * rate
	if ex.position.Side == SideShort {
		payment = -payment
	}
	ex.ledger.EquityUSDT -= payment
	ex.ledger.FundingPaidUSDT += payment
}
