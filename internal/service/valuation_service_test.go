package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ndewijer/portfolio-analytics/internal/apperrors"
	"github.com/ndewijer/portfolio-analytics/internal/model"
	"github.com/ndewijer/portfolio-analytics/internal/repository"
	"github.com/ndewijer/portfolio-analytics/internal/testutil"
)

// seedUSDOwner records a 1000 USD deposit spent on 10 AAPL at 100 USD on
// 2024-01-02, a USD/KWD rate of 0.3 and AAPL closes of 100 and 110.
func seedUSDOwner(t *testing.T, db *sql.DB) string {
	t.Helper()

	owner := testutil.MakeID()
	testutil.NewTransaction(owner).Deposit("1000").WithDate(testutil.Day(2024, 1, 2)).Build(t, db)
	testutil.NewTransaction(owner).WithSymbol("AAPL").WithDate(testutil.Day(2024, 1, 2)).Build(t, db)
	testutil.CreateExchangeRate(t, db, "USD", "KWD", "0.3", testutil.Day(2024, 1, 1))
	testutil.CreatePrice(t, db, "AAPL", "100", "USD", testutil.Day(2024, 1, 2))
	testutil.CreatePrice(t, db, "AAPL", "110", "USD", testutil.Day(2024, 1, 3))
	return owner
}

// TestValuationService_BuildSnapshot tests building and storing one snapshot.
//
// WHY: The daily snapshot is the unit every report is derived from. It must
// value positions and cash in the base currency and persist exactly one row per
// owner and day, however often it is rebuilt.
func TestValuationService_BuildSnapshot(t *testing.T) {
	t.Run("values positions in base currency and stores the snapshot", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
		owner := seedUSDOwner(t, db)

		// Execute
		val, err := svc.BuildSnapshot(context.Background(), owner, testutil.Day(2024, 1, 3))

		// Assert
		if err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}

		snap := val.Snapshot
		if snap.PortfolioValue.String() != "330" {
			t.Errorf("Expected portfolio value 330, got %s", snap.PortfolioValue)
		}
		if !snap.CashValue.IsZero() {
			t.Errorf("Expected zero cash, got %s", snap.CashValue)
		}
		if snap.NetInvested.String() != "300" {
			t.Errorf("Expected net invested 300, got %s", snap.NetInvested)
		}
		if snap.Quality != model.QualityOK {
			t.Errorf("Expected quality ok, got %s with issues %v", snap.Quality, snap.Issues)
		}

		stored, err := repository.NewSnapshotRepository(db).GetSnapshot(owner, testutil.Day(2024, 1, 3))
		if err != nil {
			t.Fatalf("GetSnapshot() returned unexpected error: %v", err)
		}
		if !stored.PortfolioValue.Equal(snap.PortfolioValue) {
			t.Errorf("Stored value %s differs from built value %s", stored.PortfolioValue, snap.PortfolioValue)
		}
	})

	t.Run("rebuilding the same day replaces the row with an identical snapshot", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
		owner := seedUSDOwner(t, db)
		ctx := context.Background()

		// Execute
		first, err := svc.BuildSnapshot(ctx, owner, testutil.Day(2024, 1, 3))
		if err != nil {
			t.Fatalf("first BuildSnapshot() error: %v", err)
		}
		second, err := svc.BuildSnapshot(ctx, owner, testutil.Day(2024, 1, 3))
		if err != nil {
			t.Fatalf("second BuildSnapshot() error: %v", err)
		}

		// Assert
		if !first.Snapshot.PortfolioValue.Equal(second.Snapshot.PortfolioValue) ||
			!first.Snapshot.NetGain.Equal(second.Snapshot.NetGain) {
			t.Errorf("Expected identical snapshots, got %+v and %+v", first.Snapshot, second.Snapshot)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshot WHERE owner_id = ?`, owner).Scan(&count); err != nil {
			t.Fatalf("count query failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 stored snapshot, got %d", count)
		}
	})

	t.Run("concurrent builds of the same day store one row", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
		owner := seedUSDOwner(t, db)

		// Execute
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.BuildSnapshot(context.Background(), owner, testutil.Day(2024, 1, 3)); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)

		// Assert
		for err := range errs {
			t.Errorf("BuildSnapshot() returned unexpected error: %v", err)
		}
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshot WHERE owner_id = ?`, owner).Scan(&count); err != nil {
			t.Fatalf("count query failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 stored snapshot, got %d", count)
		}
	})

	t.Run("missing fx rate degrades instead of failing", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
		owner := testutil.MakeID()
		testutil.NewTransaction(owner).WithSymbol("SAP").WithCurrency("EUR").WithDate(testutil.Day(2024, 1, 2)).Build(t, db)
		testutil.CreatePrice(t, db, "SAP", "100", "EUR", testutil.Day(2024, 1, 2))

		// Execute
		val, err := svc.BuildSnapshot(context.Background(), owner, testutil.Day(2024, 1, 2))

		// Assert
		if err != nil {
			t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
		}
		if !val.Snapshot.Degraded() {
			t.Error("Expected degraded snapshot")
		}
		found := false
		for _, issue := range val.Snapshot.Issues {
			if issue.Kind == model.IssueUnconvertedFx && issue.Currency == "EUR" {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected an unconverted EUR issue, got %v", val.Snapshot.Issues)
		}
	})
}

// TestValuationService_RebuildRange tests rebuilding a range of days.
//
// WHY: Corrections to the ledger are applied by rebuilding the affected days.
// Each day must chain from the one before it so that daily movement and
// accumulated cash stay consistent.
func TestValuationService_RebuildRange(t *testing.T) {
	t.Run("chains daily movement and gain from the first day", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
		owner := seedUSDOwner(t, db)

		// Execute
		snaps, err := svc.RebuildRange(context.Background(), owner, testutil.Day(2024, 1, 2), testutil.Day(2024, 1, 3))

		// Assert
		if err != nil {
			t.Fatalf("RebuildRange() returned unexpected error: %v", err)
		}
		if len(snaps) != 2 {
			t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
		}

		day1, day2 := snaps[0], snaps[1]
		if day1.PortfolioValue.String() != "300" || !day1.NetGain.IsZero() {
			t.Errorf("Expected baseline 300 with zero gain, got %s / %s", day1.PortfolioValue, day1.NetGain)
		}
		if day2.DailyMovement.String() != "30" {
			t.Errorf("Expected daily movement 30, got %s", day2.DailyMovement)
		}
		if day2.ChangePercent.String() != "10" {
			t.Errorf("Expected change 10%%, got %s", day2.ChangePercent)
		}
		if day2.NetGain.String() != "30" || day2.ROIPercent.String() != "10" {
			t.Errorf("Expected gain 30 and ROI 10%%, got %s / %s", day2.NetGain, day2.ROIPercent)
		}

		stored, err := svc.GetSnapshots(owner, testutil.Day(2024, 1, 1), testutil.Day(2024, 1, 31))
		if err != nil {
			t.Fatalf("GetSnapshots() returned unexpected error: %v", err)
		}
		if len(stored) != 2 {
			t.Errorf("Expected 2 stored snapshots, got %d", len(stored))
		}
	})

	t.Run("rejects an inverted range", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())

		// Execute
		_, err := svc.RebuildRange(context.Background(), testutil.MakeID(), testutil.Day(2024, 2, 1), testutil.Day(2024, 1, 1))

		// Assert
		if !errors.Is(err, apperrors.ErrInvalidDateRange) {
			t.Errorf("Expected ErrInvalidDateRange, got %v", err)
		}
	})
}

// seedLaterOverSell records AAA bought on 2024-01-02 and over-sold on
// 2024-01-05, all in KWD, with a 1000 KWD deposit and an AAA close of 11.
func seedLaterOverSell(t *testing.T, db *sql.DB) string {
	t.Helper()

	owner := testutil.MakeID()
	testutil.NewTransaction(owner).Deposit("1000").WithCurrency("KWD").WithDate(testutil.Day(2024, 1, 1)).Build(t, db)
	testutil.NewTransaction(owner).WithSymbol("AAA").WithCurrency("KWD").
		WithQuantity("10").WithPrice("10").WithDate(testutil.Day(2024, 1, 2)).Build(t, db)
	testutil.NewTransaction(owner).WithSymbol("AAA").WithCurrency("KWD").WithType(model.TransactionSell).
		WithQuantity("20").WithPrice("10").WithDate(testutil.Day(2024, 1, 5)).Build(t, db)
	testutil.CreatePrice(t, db, "AAA", "11", "KWD", testutil.Day(2024, 1, 2))
	return owner
}

// TestValuationService_RebuildRangeMatchesSingleDayBuilds tests that a day
// gets the same snapshot whether it is rebuilt in a range or built alone.
//
// WHY: A range rebuild loads history up to its last day. An over-sell after a
// day must not change that day's snapshot, otherwise the stored history
// depends on how it was produced.
func TestValuationService_RebuildRangeMatchesSingleDayBuilds(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
	owner := seedLaterOverSell(t, db)
	ctx := context.Background()

	// Execute
	ranged, err := svc.RebuildRange(ctx, owner, testutil.Day(2024, 1, 2), testutil.Day(2024, 1, 5))
	if err != nil {
		t.Fatalf("RebuildRange() returned unexpected error: %v", err)
	}

	// Assert
	if len(ranged) != 4 {
		t.Fatalf("Expected 4 snapshots, got %d", len(ranged))
	}
	for _, want := range ranged {
		got, err := svc.BuildSnapshot(ctx, owner, want.Date)
		if err != nil {
			t.Fatalf("BuildSnapshot(%s) returned unexpected error: %v", want.Date.Format(time.DateOnly), err)
		}
		snap := got.Snapshot
		if !snap.PortfolioValue.Equal(want.PortfolioValue) ||
			!snap.MarketValue.Equal(want.MarketValue) ||
			!snap.CashValue.Equal(want.CashValue) ||
			!snap.NetGain.Equal(want.NetGain) ||
			snap.Quality != want.Quality ||
			len(snap.Issues) != len(want.Issues) {
			t.Errorf("%s: single build %+v differs from range build %+v", want.Date.Format(time.DateOnly), snap, want)
		}
	}

	day3 := ranged[1]
	if day3.PortfolioValue.String() != "1010" || day3.MarketValue.String() != "110" {
		t.Errorf("Expected 2024-01-03 value 1010 with market 110, got %s / %s", day3.PortfolioValue, day3.MarketValue)
	}
	if day3.Quality != model.QualityOK {
		t.Errorf("Expected 2024-01-03 to be ok, got issues %v", day3.Issues)
	}
	if !ranged[3].Degraded() {
		t.Error("Expected 2024-01-05 to be degraded by the over-sell")
	}
}

// TestValuationService_PreviewSnapshot tests valuing a day without storing it.
//
// WHY: A dry run must report the same numbers a real build would store while
// leaving the stored history untouched.
func TestValuationService_PreviewSnapshot(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
	owner := seedUSDOwner(t, db)
	ctx := context.Background()
	if _, err := svc.BuildSnapshot(ctx, owner, testutil.Day(2024, 1, 2)); err != nil {
		t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
	}

	// Execute
	preview, err := svc.PreviewSnapshot(owner, testutil.Day(2024, 1, 3))

	// Assert
	if err != nil {
		t.Fatalf("PreviewSnapshot() returned unexpected error: %v", err)
	}
	if preview.Snapshot.DailyMovement.String() != "30" {
		t.Errorf("Expected preview to chain from the stored day with movement 30, got %s", preview.Snapshot.DailyMovement)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshot WHERE owner_id = ?`, owner).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected only the built snapshot to be stored, got %d rows", count)
	}

	built, err := svc.BuildSnapshot(ctx, owner, testutil.Day(2024, 1, 3))
	if err != nil {
		t.Fatalf("BuildSnapshot() returned unexpected error: %v", err)
	}
	if !built.Snapshot.PortfolioValue.Equal(preview.Snapshot.PortfolioValue) {
		t.Errorf("Expected preview value %s to match build %s", preview.Snapshot.PortfolioValue, built.Snapshot.PortfolioValue)
	}
}

// TestValuationService_SnapshotAllOwners tests the daily job entry point.
//
// WHY: The scheduled job must cover every owner with activity, not only the
// ones that have been snapshotted before.
func TestValuationService_SnapshotAllOwners(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
	ownerA := seedUSDOwner(t, db)
	ownerB := testutil.MakeID()
	testutil.CreateDeposit(t, db, ownerB, "main", "500", "KWD", testutil.Day(2024, 1, 2))

	// Execute
	err := svc.SnapshotAllOwners(context.Background(), testutil.Day(2024, 1, 3))

	// Assert
	if err != nil {
		t.Fatalf("SnapshotAllOwners() returned unexpected error: %v", err)
	}
	repo := repository.NewSnapshotRepository(db)
	for _, owner := range []string{ownerA, ownerB} {
		if _, err := repo.GetSnapshot(owner, testutil.Day(2024, 1, 3)); err != nil {
			t.Errorf("Expected snapshot for %s, got %v", owner, err)
		}
	}
	snapB, _ := repo.GetSnapshot(ownerB, testutil.Day(2024, 1, 3))
	if snapB.CashValue.String() != "500" {
		t.Errorf("Expected deposit-only owner to hold 500 KWD cash, got %s", snapB.CashValue)
	}
}

// TestValuationService_GetPositions tests the position report.
//
// WHY: Positions are computed on demand and must not write a snapshot.
func TestValuationService_GetPositions(t *testing.T) {
	// Setup
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestValuationService(t, db, testutil.TestSettings())
	owner := seedUSDOwner(t, db)

	// Execute
	positions, err := svc.GetPositions(owner, testutil.Day(2024, 1, 3))

	// Assert
	if err != nil {
		t.Fatalf("GetPositions() returned unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("Expected 1 position, got %d", len(positions))
	}
	p := positions[0]
	if p.Symbol != "AAPL" || p.OpenQuantity.String() != "10" {
		t.Errorf("Unexpected position %+v", p)
	}
	if p.MarketValue.String() != "330" || p.Unrealized.String() != "30" {
		t.Errorf("Expected market value 330 and unrealized 30, got %s / %s", p.MarketValue, p.Unrealized)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshot`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no stored snapshots, got %d", count)
	}
}
