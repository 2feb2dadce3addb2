// Package drivers derives historical operating drivers from a canonical
// dataset: growth, margin, and capital-intensity ratios per period pair.
package drivers

import (
	"time"

	"hfmemo/pkg/core/schema"
)

// PeriodDrivers is a read-only snapshot of the drivers for one consecutive
// historical period pair, keyed by the later period's end date.
type PeriodDrivers struct {
	PeriodEnd       time.Time
	RevenueGrowth   float64 // fractional change vs prior period
	OperatingMargin float64 // operating_income / revenue
	CapexPctRevenue float64 // |capex| / revenue
	NWCPctRevenue   float64 // 0 when working-capital data is absent (MVP)
}

// Extract computes one PeriodDrivers entry per consecutive period pair, so N
// periods yield at most N-1 entries. A pair whose prior or current revenue is
// missing or zero is omitted rather than failing the whole dataset: one bad
// historical data point should not abort the driver sequence. A missing
// operating income or capex for an otherwise usable pair yields a 0 ratio.
func Extract(ds *schema.Dataset) []PeriodDrivers {
	periods := ds.Periods()
	var out []PeriodDrivers

	for i := 1; i < len(periods); i++ {
		prevRev, okPrev := ds.Value(periods[i-1], schema.Revenue)
		curRev, okCur := ds.Value(periods[i], schema.Revenue)
		if !okPrev || !okCur || prevRev == 0 || curRev == 0 {
			continue
		}

		entry := PeriodDrivers{
			PeriodEnd:     periods[i],
			RevenueGrowth: curRev/prevRev - 1,
		}
		if opInc, ok := ds.Value(periods[i], schema.OperatingIncome); ok {
			entry.OperatingMargin = opInc / curRev
		}
		if capex, ok := ds.Value(periods[i], schema.Capex); ok {
			if capex < 0 {
				capex = -capex
			}
			entry.CapexPctRevenue = capex / curRev
		}
		out = append(out, entry)
	}

	return out
}

// TrailingAverageMargin returns the mean operating margin over the last n
// driver entries, used as the forecast fallback when a scenario supplies no
// margin assumption. Returns 0 when the sequence is empty.
func TrailingAverageMargin(hist []PeriodDrivers, n int) float64 {
	if len(hist) == 0 || n <= 0 {
		return 0
	}
	start := len(hist) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, d := range hist[start:] {
		sum += d.OperatingMargin
	}
	return sum / float64(len(hist)-start)
}
