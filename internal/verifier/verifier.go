package verifier

import (
	"context"
	"fmt"

	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// divPrec: explicit division precision for every ratio/amount division.
// Passed per call instead of a package-global context so no unrelated
// code can change it under us.
const divPrec = 28

// QuoteProvider supplies a fresh best bid/ask for a concatenated pair
// symbol (base+quote, no separator). Implementations must return an
// error for unknown symbols, never a default price.
type QuoteProvider interface {
	BestBidAsk(ctx context.Context, symbol string) (types.Quote, error)
}

type Kind string

const (
	KindMalformedCycle   Kind = "MALFORMED_CYCLE"
	KindInvalidQuote     Kind = "INVALID_QUOTE"
	KindQuoteUnavailable Kind = "QUOTE_UNAVAILABLE"
)

// Error is a per-candidate verification failure. Leg is 1-based and 0
// when the cycle itself is malformed.
type Error struct {
	Kind Kind
	Leg  int
	Pair string
	Err  error
}

func (e *Error) Error() string {
	if e.Leg == 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: leg %d (%s): %v", e.Kind, e.Leg, e.Pair, e.Err)
	}
	return fmt.Sprintf("%s: leg %d (%s)", e.Kind, e.Leg, e.Pair)
}

func (e *Error) Unwrap() error { return e.Err }

// Verifier simulates the three-leg trade against live quotes. It is
// read-only: no orders are ever placed.
type Verifier struct {
	provider QuoteProvider
	log      *zap.Logger
}

func New(provider QuoteProvider, log *zap.Logger) *Verifier {
	return &Verifier{provider: provider, log: log}
}

// Verify runs the cycle start -> mid -> end -> start with notional
// units of the starting currency:
//
//	leg 1: buy mid with start (pair mid+start, ask)
//	leg 2: sell mid for end  (pair mid+end, bid)
//	leg 3: sell end for start (pair end+start, bid)
//
// Every amount stays a full-precision decimal; the caller rounds for
// display only. The three lookups are sequential because each leg's
// balance feeds the next.
func (v *Verifier) Verify(ctx context.Context, cand types.Candidate, notional decimal.Decimal) (types.Verification, error) {
	cycle := cand.Cycle
	if !cycle.Valid() {
		return types.Verification{}, &Error{
			Kind: KindMalformedCycle,
			Err:  fmt.Errorf("cycle %q must close on its starting currency", cycle.String()),
		}
	}
	start, mid, end := cycle[0], cycle[1], cycle[2]

	var res types.Verification
	res.Candidate = cand
	res.Notional = notional

	// Leg 1: start -> mid по цене ask
	pair1 := mid + start
	q1, err := v.provider.BestBidAsk(ctx, pair1)
	if err != nil {
		return types.Verification{}, &Error{Kind: KindQuoteUnavailable, Leg: 1, Pair: pair1, Err: err}
	}
	if !q1.BestAsk.IsPositive() {
		return types.Verification{}, &Error{Kind: KindInvalidQuote, Leg: 1, Pair: pair1,
			Err: fmt.Errorf("ask %s", q1.BestAsk)}
	}
	amountMid := notional.DivRound(q1.BestAsk, divPrec)
	res.Legs[0] = types.Leg{Pair: pair1, Side: "ask", Price: q1.BestAsk, Amount: amountMid}

	// Leg 2: mid -> end по цене bid
	pair2 := mid + end
	q2, err := v.provider.BestBidAsk(ctx, pair2)
	if err != nil {
		return types.Verification{}, &Error{Kind: KindQuoteUnavailable, Leg: 2, Pair: pair2, Err: err}
	}
	if !q2.BestBid.IsPositive() {
		return types.Verification{}, &Error{Kind: KindInvalidQuote, Leg: 2, Pair: pair2,
			Err: fmt.Errorf("bid %s", q2.BestBid)}
	}
	amountEnd := amountMid.Mul(q2.BestBid)
	res.Legs[1] = types.Leg{Pair: pair2, Side: "bid", Price: q2.BestBid, Amount: amountEnd}

	// Leg 3: end -> start по цене bid
	pair3 := end + start
	q3, err := v.provider.BestBidAsk(ctx, pair3)
	if err != nil {
		return types.Verification{}, &Error{Kind: KindQuoteUnavailable, Leg: 3, Pair: pair3, Err: err}
	}
	if !q3.BestBid.IsPositive() {
		return types.Verification{}, &Error{Kind: KindInvalidQuote, Leg: 3, Pair: pair3,
			Err: fmt.Errorf("bid %s", q3.BestBid)}
	}
	res.Final = amountEnd.Mul(q3.BestBid)
	res.Legs[2] = types.Leg{Pair: pair3, Side: "bid", Price: q3.BestBid, Amount: res.Final}

	res.Ratio = res.Final.DivRound(notional, divPrec)

	v.log.Debug("verified cycle",
		zap.String("cycle", cycle.String()),
		zap.String("leg1_price", q1.BestAsk.StringFixed(8)),
		zap.String("leg2_price", q2.BestBid.StringFixed(8)),
		zap.String("leg3_price", q3.BestBid.StringFixed(8)),
		zap.String("final", res.Final.StringFixed(8)),
		zap.String("ratio", res.Ratio.StringFixed(8)),
	)
	return res, nil
}
