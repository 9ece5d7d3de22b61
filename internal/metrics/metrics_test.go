package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/susu3304/lotterybot/internal/lottery"
)

type failingStore struct {
	fail bool
}

func (s *failingStore) Save(ctx context.Context, snap *lottery.Snapshot) error {
	if s.fail {
		return errors.New("disk full")
	}
	return nil
}

func (s *failingStore) Load(ctx context.Context) (*lottery.Snapshot, error) {
	return nil, lottery.ErrNoSnapshot
}

func TestLotteryMetricsThroughManager(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	mt := NewLotteryMetrics(reg)
	store := &failingStore{}

	m := lottery.NewManager(store, lottery.DefaultTemplate(),
		lottery.WithMetrics(mt),
		lottery.WithRandom(func() float64 { return 0.005 }),
	)

	if _, err := m.Draw(ctx, "G1", "U1", "alice"); !errors.Is(err, lottery.ErrNoActivity) {
		t.Fatalf("Expected ErrNoActivity, got %v", err)
	}
	m.StartActivity(ctx, "G1")
	m.StartActivity(ctx, "G2")
	if got := testutil.ToFloat64(mt.ActiveActivitiesNow); got != 2 {
		t.Errorf("Expected 2 active activities, got %v", got)
	}

	m.Draw(ctx, "G1", "U1", "alice")
	m.Draw(ctx, "G1", "U1", "alice")

	if got := testutil.ToFloat64(mt.DrawsTotal.WithLabelValues("SPECIAL")); got != 1 {
		t.Errorf("Expected 1 SPECIAL draw, got %v", got)
	}
	if got := testutil.ToFloat64(mt.DrawRejectionsTotal.WithLabelValues("no_activity")); got != 1 {
		t.Errorf("Expected 1 no_activity rejection, got %v", got)
	}
	if got := testutil.ToFloat64(mt.DrawRejectionsTotal.WithLabelValues("already_participated")); got != 1 {
		t.Errorf("Expected 1 already_participated rejection, got %v", got)
	}

	store.fail = true
	m.StopActivity(ctx, "G2")
	if got := testutil.ToFloat64(mt.PersistFailures); got != 1 {
		t.Errorf("Expected 1 persist failure, got %v", got)
	}
	if got := testutil.ToFloat64(mt.ActiveActivitiesNow); got != 1 {
		t.Errorf("Expected 1 active activity, got %v", got)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	NewLotteryMetrics(prometheus.NewRegistry())
	NewLotteryMetrics(prometheus.NewRegistry())

	reg := prometheus.NewRegistry()
	NewLotteryMetrics(reg)
	defer func() {
		if recover() == nil {
			t.Error("Expected duplicate registration on one registry to panic")
		}
	}()
	NewLotteryMetrics(reg)
}
