// Package corerr defines the closed error taxonomy the backtesting core
// surfaces. Every error that crosses a package boundary is a *CoreError
// wrapping one of the enumerated Kinds; there are no bare sentinel errors.
package corerr

import "fmt"

// Kind enumerates the exhaustive failure modes of the core (spec §7).
type Kind int

const (
	// Configuration
	UnsupportedMode Kind = iota
	InvalidSymbol
	InvalidIdeaCard
	UnsupportedIndicatorType
	InvalidIndicatorParams
	MissingWarmupConfig
	RuleCompileError

	// Data
	DataNotFound
	DataGap
	InsufficientCoverage
	InsufficientSimBars

	// Feature pipeline
	CanonicalCollision
	MissingDeclaredOutputs
	FeatureLengthMismatch
	IndicatorNotDeclared
	IndicatorNaN

	// Exchange
	InsufficientMargin
	DuplicatePendingOrder
	OrderBookFull
	Liquidation
	EntriesDisabled

	// Engine control
	EquityFloorStop
	StarvationStop
	EndOfData
	Cancelled

	// Artifact
	ArtifactWriteFailed
	HashMismatch
)

func (k Kind) String() string {
	switch k {
	case UnsupportedMode:
		return "UNSUPPORTED_MODE"
	case InvalidSymbol:
		return "INVALID_SYMBOL"
	case InvalidIdeaCard:
		return "INVALID_IDEA_CARD"
	case UnsupportedIndicatorType:
		return "UNSUPPORTED_INDICATOR_TYPE"
	case InvalidIndicatorParams:
		return "INVALID_INDICATOR_PARAMS"
	case MissingWarmupConfig:
		return "MISSING_WARMUP_CONFIG"
	case RuleCompileError:
		return "RULE_COMPILE_ERROR"
	case DataNotFound:
		return "DATA_NOT_FOUND"
	case DataGap:
		return "DATA_GAP"
	case InsufficientCoverage:
		return "INSUFFICIENT_COVERAGE"
	case InsufficientSimBars:
		return "INSUFFICIENT_SIM_BARS"
	case CanonicalCollision:
		return "CANONICAL_COLLISION"
	case MissingDeclaredOutputs:
		return "MISSING_DECLARED_OUTPUTS"
	case FeatureLengthMismatch:
		return "FEATURE_LENGTH_MISMATCH"
	case IndicatorNotDeclared:
		return "INDICATOR_NOT_DECLARED"
	case IndicatorNaN:
		return "INDICATOR_NAN"
	case InsufficientMargin:
		return "INSUFFICIENT_MARGIN"
	case DuplicatePendingOrder:
		return "DUPLICATE_PENDING_ORDER"
	case OrderBookFull:
		return "ORDER_BOOK_FULL"
	case Liquidation:
		return "LIQUIDATION"
	case EntriesDisabled:
		return "ENTRIES_DISABLED"
	case EquityFloorStop:
		return "EQUITY_FLOOR_STOP"
	case StarvationStop:
		return "STARVATION_STOP"
	case EndOfData:
		return "END_OF_DATA"
	case Cancelled:
		return "CANCELLED"
	case ArtifactWriteFailed:
		return "ARTIFACT_WRITE_FAILED"
	case HashMismatch:
		return "HASH_MISMATCH"
	default:
		return "UNKNOWN"
	}
}

// CoreError is the single error type returned across package boundaries.
// Context carries salient diagnostic fields (symbol, bar index, expected
// vs actual) so failures are fail-loud and inspectable without parsing a
// free-form message.
type CoreError struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// New builds a CoreError with no context.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Newf builds a CoreError with a formatted message.
func Newf(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a CoreError with an underlying cause.
func Wrap(kind Kind, cause error, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// With attaches context fields and returns the same error for chaining.
func (e *CoreError) With(ctx map[string]any) *CoreError {
	if e.Context == nil {
		e.Context = make(map[string]any, len(ctx))
	}
	for k, v := range ctx {
		e.Context[k] = v
	}
	return e
}

// Is reports whether err is a *CoreError of the given Kind.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*CoreError)
	if !ok {
		return false
	}
	return ce.Kind == kind
}
