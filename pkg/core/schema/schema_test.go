package schema

import (
	"errors"
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func rec(ticker string, end time.Time, item LineItem, v float64) Record {
	return Record{
		Ticker:    ticker,
		PeriodEnd: end,
		Statement: item.Statement(),
		LineItem:  item,
		Value:     v,
		Currency:  "USD",
		Source:    "test",
	}
}

func TestNewDatasetSortsAndValidates(t *testing.T) {
	// Records supplied newest-first; dataset must come out ascending.
	records := []Record{
		rec("AAPL", date(2023, 9, 30), Revenue, 383285e6),
		rec("AAPL", date(2022, 9, 24), Revenue, 394328e6),
		rec("AAPL", date(2023, 9, 30), Capex, -10959e6),
		rec("AAPL", date(2022, 9, 24), Capex, -10708e6),
	}

	ds, err := NewDataset("AAPL", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	periods := ds.Periods()
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if !periods[0].Before(periods[1]) {
		t.Errorf("periods not ascending: %v", periods)
	}

	latest, ok := ds.Latest(Revenue)
	if !ok || latest.Value != 383285e6 {
		t.Errorf("Latest(Revenue) = %v, %v; want most recent period", latest.Value, ok)
	}
}

func TestNewDatasetRejectsPositiveCapex(t *testing.T) {
	records := []Record{
		rec("X", date(2022, 12, 31), Revenue, 100),
		rec("X", date(2023, 12, 31), Revenue, 110),
		rec("X", date(2023, 12, 31), Capex, 5), // inflow sign, must be rejected
	}
	if _, err := NewDataset("X", records); err == nil {
		t.Fatal("expected error for positive capex")
	}
}

func TestNewDatasetRejectsDuplicateFact(t *testing.T) {
	records := []Record{
		rec("X", date(2022, 12, 31), Revenue, 100),
		rec("X", date(2023, 12, 31), Revenue, 110),
		rec("X", date(2023, 12, 31), Revenue, 111),
	}
	if _, err := NewDataset("X", records); err == nil {
		t.Fatal("expected error for duplicate (period_end, line_item)")
	}
}

func TestNewDatasetRejectsStatementMismatch(t *testing.T) {
	r := rec("X", date(2023, 12, 31), Revenue, 100)
	r.Statement = StatementBalance
	records := []Record{
		r,
		rec("X", date(2022, 12, 31), Revenue, 90),
	}
	if _, err := NewDataset("X", records); err == nil {
		t.Fatal("expected error for wrong statement assignment")
	}
}

func TestNewDatasetInsufficientHistory(t *testing.T) {
	// One period only: below the MinPeriods gate.
	records := []Record{
		rec("X", date(2023, 12, 31), Revenue, 100),
		rec("X", date(2023, 12, 31), NetIncome, 10),
	}
	_, err := NewDataset("X", records)
	var histErr *InsufficientHistoryError
	if !errors.As(err, &histErr) {
		t.Fatalf("expected *InsufficientHistoryError, got %v", err)
	}
	if histErr.Periods != 1 {
		t.Errorf("Periods = %d, want 1", histErr.Periods)
	}
}

func TestValueAndSeries(t *testing.T) {
	records := []Record{
		rec("X", date(2022, 12, 31), Revenue, 100),
		rec("X", date(2023, 12, 31), Revenue, 110),
		rec("X", date(2023, 12, 31), CFO, 25),
	}
	ds, err := NewDataset("X", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, ok := ds.Value(date(2023, 12, 31), Revenue); !ok || v != 110 {
		t.Errorf("Value = %v, %v; want 110, true", v, ok)
	}
	if _, ok := ds.Value(date(2022, 12, 31), CFO); ok {
		t.Error("expected missing CFO fact for 2022")
	}
	if got := len(ds.Series(Revenue)); got != 2 {
		t.Errorf("Series(Revenue) length = %d, want 2", got)
	}
}
