package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kabradhruv/triarb-scanner/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fixed structural signature of the source pages. The opportunity table
// lives inside one designated panel; currency symbols sit in nested
// spans at fixed cell offsets and the profit figure in a nested div of
// the 7th cell.
const (
	containerSel  = "div.esgTile.p-l-10.p-r-10"
	tableSel      = "table.table"
	symbolSpanSel = "span.p-5"
	profitDivSel  = "div.esgTile.p-l-10.p-r-10"
	minCells      = 7
)

// Stats counts what was dropped and why; the extractor never fails a
// whole page because of one bad row.
type Stats struct {
	Rows        int
	SkippedRows int
}

// Extract pulls candidate opportunities out of one page. Rows must
// start from baseCurrency and strictly exceed thresholdPct to qualify.
// A page without the expected container or table yields zero candidates
// and a diagnostic, not an error.
func Extract(page string, baseCurrency string, thresholdPct decimal.Decimal, source string, log *zap.Logger) ([]types.Candidate, Stats) {
	var st Stats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		log.Warn("extractor: unparsable page", zap.String("url", source), zap.Error(err))
		return nil, st
	}

	container := doc.Find(containerSel).First()
	if container.Length() == 0 {
		log.Debug("extractor: no container found", zap.String("url", source))
		return nil, st
	}
	table := container.Find(tableSel).First()
	if table.Length() == 0 {
		log.Debug("extractor: no table found", zap.String("url", source))
		return nil, st
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		log.Debug("extractor: not enough rows", zap.String("url", source), zap.Int("rows", rows.Length()))
		return nil, st
	}

	now := time.Now()
	out := make([]types.Candidate, 0, rows.Length()-1)

	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		st.Rows++

		cells := row.Find("td")
		if cells.Length() < minCells {
			st.SkippedRows++
			return
		}

		start, ok := symbolAt(cells, 0)
		if !ok {
			st.SkippedRows++
			return
		}
		if !strings.EqualFold(start, baseCurrency) {
			// не наша базовая валюта — строка легальна, просто чужая
			return
		}
		buy1, ok1 := symbolAt(cells, 1)
		buy2, ok2 := symbolAt(cells, 3)
		buy3, ok3 := symbolAt(cells, 5)
		if !ok1 || !ok2 || !ok3 {
			st.SkippedRows++
			return
		}

		profit, ok := profitAt(cells, 6)
		if !ok {
			st.SkippedRows++
			return
		}
		if !profit.GreaterThan(thresholdPct) {
			return
		}

		out = append(out, types.Candidate{
			Cycle:             types.NewCycle(start, buy1, buy2, buy3),
			ReportedProfitPct: profit,
			Source:            source,
			DiscoveredAt:      now,
		})
	})

	return out, st
}

// symbolAt reads the nested currency span of cell i. The ok result is
// false when the cell or its span is missing, so a malformed row
// degrades to "field absent" instead of blowing up the batch.
func symbolAt(cells *goquery.Selection, i int) (string, bool) {
	span := cells.Eq(i).Find(symbolSpanSel).First()
	if span.Length() == 0 {
		return "", false
	}
	s := strings.TrimSpace(span.Text())
	if s == "" {
		return "", false
	}
	return s, true
}

// profitAt parses the leading numeric token of the profit div in cell i.
func profitAt(cells *goquery.Selection, i int) (decimal.Decimal, bool) {
	div := cells.Eq(i).Find(profitDivSel).First()
	if div.Length() == 0 {
		return decimal.Decimal{}, false
	}
	fields := strings.Fields(div.Text())
	if len(fields) == 0 {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(fields[0], "%"))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
