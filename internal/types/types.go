package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cycle is the 4-symbol path of a triangular trade, e.g.
// [USDT GALA BTC USDT]. The first and last symbols must match.
type Cycle [4]string

func NewCycle(start, mid, end, final string) Cycle {
	return Cycle{
		strings.ToUpper(strings.TrimSpace(start)),
		strings.ToUpper(strings.TrimSpace(mid)),
		strings.ToUpper(strings.TrimSpace(end)),
		strings.ToUpper(strings.TrimSpace(final)),
	}
}

// Valid reports whether the cycle closes on its starting currency.
func (c Cycle) Valid() bool {
	for _, s := range c {
		if s == "" {
			return false
		}
	}
	return c[0] == c[3]
}

func (c Cycle) String() string {
	return c[0] + " -> " + c[1] + " -> " + c[2] + " -> " + c[3]
}

// Candidate is one opportunity row scraped from a source page.
// Lives for a single poll cycle, never persisted.
type Candidate struct {
	Cycle             Cycle
	ReportedProfitPct decimal.Decimal
	Source            string
	DiscoveredAt      time.Time
}

// Quote is a fresh bookTicker snapshot for one pair. Quotes are never
// cached across verifications: arbitrage windows are sub-second.
type Quote struct {
	Symbol  string
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
}

// Leg is one executed conversion of the simulated trade.
type Leg struct {
	Pair   string
	Side   string // "ask" on the buy leg, "bid" on the sell legs
	Price  decimal.Decimal
	Amount decimal.Decimal // balance after this leg, full precision
}

// Verification is the result of re-checking a candidate against live
// quotes. Amounts keep full precision; rounding happens at display only.
type Verification struct {
	Candidate Candidate
	Notional  decimal.Decimal
	Final     decimal.Decimal
	Ratio     decimal.Decimal
	Legs      [3]Leg
}

type Status string

const (
	// StatusConfirmed: live ratio still above the pass threshold.
	StatusConfirmed Status = "CONFIRMED"
	// StatusClosed: the window closed between scrape and verification.
	// Expected and common, not an error.
	StatusClosed Status = "CLOSED"
	// StatusUnverifiable: a quote could not be obtained or was invalid.
	StatusUnverifiable Status = "UNVERIFIABLE"
)

// Outcome is what the scanner emits per candidate. Verification is nil
// only when Status is StatusUnverifiable.
type Outcome struct {
	Candidate    Candidate
	Status       Status
	Verification *Verification
	Reason       string
	Ts           time.Time
}
