package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/engine"
	"github.com/ndewijer/portfolio-analytics/internal/testutil"
)

// TestPerformanceService_GetPerformance tests return metrics over stored snapshots.
//
// WHY: Without external flows inside the window, the money-weighted and
// time-weighted returns must both equal the simple return. Metrics that need
// more observations must be reported unavailable, never as zero.
func TestPerformanceService_GetPerformance(t *testing.T) {
	t.Run("one year without flows returns the simple return", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		settings := testutil.TestSettings()
		valuation := testutil.NewTestValuationService(t, db, settings)
		svc := testutil.NewTestPerformanceService(t, db, settings)
		owner := seedUSDOwner(t, db)
		testutil.CreatePrice(t, db, "AAPL", "110", "USD", testutil.Day(2025, 1, 1))

		ctx := context.Background()
		for _, d := range []int{0, 365} {
			if _, err := valuation.BuildSnapshot(ctx, owner, testutil.Day(2024, 1, 2).AddDate(0, 0, d)); err != nil {
				t.Fatalf("BuildSnapshot() error: %v", err)
			}
		}

		// Execute
		report, err := svc.GetPerformance(owner, testutil.Day(2024, 1, 1), testutil.Day(2025, 1, 31))

		// Assert
		if err != nil {
			t.Fatalf("GetPerformance() returned unexpected error: %v", err)
		}
		if report.MWRR == nil || math.Abs(*report.MWRR-0.10) > 1e-6 {
			t.Errorf("Expected MWRR 0.10, got %v (%v)", report.MWRR, report.Unavailable)
		}
		if report.TWR == nil || math.Abs(*report.TWR-0.10) > 1e-9 {
			t.Errorf("Expected TWR 0.10, got %v", report.TWR)
		}
		if report.Sharpe != nil {
			t.Errorf("Expected Sharpe to be unavailable with one sub-period, got %v", *report.Sharpe)
		}
		if _, ok := report.Unavailable[engine.MetricSharpe]; !ok {
			t.Errorf("Expected a reason for the missing Sharpe ratio, got %v", report.Unavailable)
		}
		if report.Degraded {
			t.Error("Expected a non-degraded report")
		}
	})

	t.Run("returns ErrNoSnapshots for an empty range", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPerformanceService(t, db, testutil.TestSettings())

		// Execute
		_, err := svc.GetPerformance(testutil.MakeID(), testutil.Day(2024, 1, 1), testutil.Day(2024, 12, 31))

		// Assert
		if !errors.Is(err, apperrors.ErrNoSnapshots) {
			t.Errorf("Expected ErrNoSnapshots, got %v", err)
		}
	})
}
