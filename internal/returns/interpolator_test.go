package returns

import (
	"context"
	"testing"
	"time"

	"capital-returns-engine/internal/database"
)

func findWeek(f *fakeStores, platformID string, start time.Time) *database.WeeklySnapshot {
	for i := range f.weeks {
		if f.weeks[i].PlatformID == platformID && f.weeks[i].WeekStartDate.Equal(start) {
			return &f.weeks[i]
		}
	}
	return nil
}

func TestInterpolateGapsLinearFill(t *testing.T) {
	f := newFakeStores()
	f.addWeek("p-1", date(2025, time.January, 6), "95", "100")
	f.addWeek("p-1", date(2025, time.January, 27), "130", "135")

	svc := newTestService(f, date(2025, time.March, 15))
	inserted, err := svc.InterpolateGaps(context.Background(), "p-1",
		date(2025, time.January, 6), date(2025, time.February, 3))
	if err != nil {
		t.Fatalf("InterpolateGaps failed: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 interpolated weeks, got %d", inserted)
	}

	// Values lie on the line from 100 to 130: 110, then 120
	week2 := findWeek(f, "p-1", date(2025, time.January, 13))
	if week2 == nil {
		t.Fatal("missing interpolated week starting Jan 13")
	}
	if !week2.OpeningValue.Equal(dec("100")) || !week2.ClosingValue.Equal(dec("110")) {
		t.Errorf("week 2: expected 100 -> 110, got %s -> %s", week2.OpeningValue, week2.ClosingValue)
	}
	if !week2.WeeklyReturnPct.Equal(dec("10")) {
		t.Errorf("week 2 return: expected 10, got %s", week2.WeeklyReturnPct)
	}
	if !week2.IsInterpolated {
		t.Error("week 2 not flagged as interpolated")
	}
	if week2.EnteredBy != nil {
		t.Errorf("week 2 entered_by should be nil, got %v", *week2.EnteredBy)
	}

	week3 := findWeek(f, "p-1", date(2025, time.January, 20))
	if week3 == nil {
		t.Fatal("missing interpolated week starting Jan 20")
	}
	if !week3.OpeningValue.Equal(dec("110")) || !week3.ClosingValue.Equal(dec("120")) {
		t.Errorf("week 3: expected 110 -> 120, got %s -> %s", week3.OpeningValue, week3.ClosingValue)
	}
}

func TestInterpolateGapsIdempotent(t *testing.T) {
	f := newFakeStores()
	f.addWeek("p-1", date(2025, time.January, 6), "95", "100")
	f.addWeek("p-1", date(2025, time.January, 27), "130", "135")

	svc := newTestService(f, date(2025, time.March, 15))
	ctx := context.Background()

	if _, err := svc.InterpolateGaps(ctx, "p-1", date(2025, time.January, 6), date(2025, time.February, 3)); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	inserted, err := svc.InterpolateGaps(ctx, "p-1", date(2025, time.January, 6), date(2025, time.February, 3))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second run inserted %d weeks, expected 0", inserted)
	}
	if len(f.weeks) != 4 {
		t.Errorf("expected 4 stored weeks, got %d", len(f.weeks))
	}
}

func TestInterpolateGapsNoExtrapolation(t *testing.T) {
	f := newFakeStores()
	f.addWeek("p-1", date(2025, time.January, 6), "95", "100")

	svc := newTestService(f, date(2025, time.March, 15))
	inserted, err := svc.InterpolateGaps(context.Background(), "p-1",
		date(2025, time.January, 6), date(2025, time.February, 3))
	if err != nil {
		t.Fatalf("InterpolateGaps failed: %v", err)
	}

	if inserted != 0 {
		t.Errorf("no following snapshot exists, expected 0 inserted, got %d", inserted)
	}
}

func TestInterpolateGapsOtherPlatformIgnored(t *testing.T) {
	f := newFakeStores()
	f.addWeek("p-1", date(2025, time.January, 6), "95", "100")
	f.addWeek("p-2", date(2025, time.January, 27), "130", "135")

	svc := newTestService(f, date(2025, time.March, 15))
	inserted, err := svc.InterpolateGaps(context.Background(), "p-1",
		date(2025, time.January, 6), date(2025, time.February, 3))
	if err != nil {
		t.Fatalf("InterpolateGaps failed: %v", err)
	}

	if inserted != 0 {
		t.Errorf("another platform's snapshot must not anchor interpolation, got %d inserted", inserted)
	}
}
