// Package exchange simulates a single-position, isolated-margin USDT
// perpetual venue (spec §4.5, component C8): entry gate margin checks,
// intrabar TP/SL resolution with a stop-loss tie-break, funding
// application, and liquidation with an entries-disabled latch. Modeled
// after Bybit's linear-perp fee/margin conventions.
package exchange

import "github.com/cryptorun/btcore/internal/ohlcv"

// Side is a position/order direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderRejected  OrderStatus = "rejected"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is one entry request. Exits are modeled as position-attached
// stop/target levels, not separate order objects, matching the
// single-position exchange's "one thing can be pending at a time" shape.
type Order struct {
	ID          int64
	Side        Side
	Qty         float64
	RequestedAt int64
	Status      OrderStatus
	FillPrice   float64
	FillTS      int64
	RejectKind  string
}

// Position is the (at most one) open position.
type Position struct {
	Open        bool
	Side        Side
	Qty         float64
	EntryPrice  float64
	EntryTS     int64
	Leverage    float64
	Margin      float64
	StopLoss    float64
	TakeProfit  float64
	LiqPrice    float64
}

// Ledger is the running account state.
type Ledger struct {
	EquityUSDT  float64
	RealizedPnL float64
	FeesPaidUSDT   float64
	FundingPaidUSDT float64
}

// Trade is a closed round trip.
type Trade struct {
	ID          int64
	Side        Side
	EntryPrice  float64
	ExitPrice   float64
	Qty         float64
	EntryTS     int64
	ExitTS      int64
	PnLUSDT     float64
	FeesUSDT    float64
	ExitReason  string
	MaxFavorableExcursion float64 // MFE, price-space, favorable direction
	MaxAdverseExcursion   float64 // MAE, price-space, adverse direction
}

// EquityPoint is one recorded equity-curve sample.
type EquityPoint struct {
	TS          int64
	Equity      float64
	DrawdownAbs float64
	DrawdownPct float64
}

// AccountCurvePoint is one per-bar ledger snapshot for account_curve.parquet
// (spec §6 "Persisted run layout"): margin usage and the entries-disabled
// latch alongside equity, so a reader can audit margin headroom bar by bar
// without recomputing it from trades and equity alone.
type AccountCurvePoint struct {
	TS                    int64
	EquityUSDT            float64
	UsedMarginUSDT        float64
	FreeMarginUSDT        float64
	AvailableBalanceUSDT  float64
	MaintenanceMarginUSDT float64
	HasPosition           bool
	EntriesDisabled       bool
}

// Config carries the account parameters an IdeaCard supplies (spec §3
// Account) plus the order book capacity from engine config.
type Config struct {
	InitialEquityUSDT             float64
	MaxLeverage                   float64
	InitialMarginRate             float64 // 0 means derive as 1/MaxLeverage
	MaintenanceMarginRate         float64
	TakerFeeRate                  float64
	IncludeEstCloseFeeInEntryGate bool
	FundingEnabled                bool
	OrderBookCapacity             int
	SlippageBps                   float64 // applied against the trader on next-bar-open fills
}

func (c Config) marginRate() float64 {
	if c.InitialMarginRate > 0 {
		return c.InitialMarginRate
	}
	if c.MaxLeverage <= 0 {
		return 1
	}
	return 1 / c.MaxLeverage
}

// pendingIntent is a queued MARKET entry order: guard-checked at submit
// time, but priced and margin-gated at fill time (spec §4.5 steps 4-5),
// which happens on the following bar's open.
type pendingIntent struct {
	order Order
	side  Side

	// entryPrice is the reference price the strategy signaled against
	// (the submitting bar's close); slPrice/tpPrice were computed from it
	// and stay fixed, so the eventual fill's slippage moves neither the
	// stop/target levels nor the stop distance used for sizing (which is
	// |entryPrice - slPrice|).
	entryPrice      float64
	slPrice         float64
	tpPrice         float64
	riskPerTradePct float64
}

// bar is a narrowing alias so method signatures read cleanly.
type bar = ohlcv.Bar
