package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/susu3304/lotterybot/internal/lottery"
)

// LotteryMetrics holds the lottery counters and implements lottery.Metrics.
type LotteryMetrics struct {
	DrawsTotal          *prometheus.CounterVec
	DrawRejectionsTotal *prometheus.CounterVec
	PersistFailures     prometheus.Counter
	ActiveActivitiesNow prometheus.Gauge
}

// NewLotteryMetrics registers the lottery metrics with reg.
func NewLotteryMetrics(reg prometheus.Registerer) *LotteryMetrics {
	f := promauto.With(reg)
	return &LotteryMetrics{
		DrawsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_draws_total",
				Help: "Completed draws by resulting prize level",
			},
			[]string{"level"},
		),
		DrawRejectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottery_draw_rejections_total",
				Help: "Draw attempts rejected before drawing",
			},
			[]string{"reason"},
		),
		PersistFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lottery_persist_failures_total",
				Help: "Failed attempts to save lottery state",
			},
		),
		ActiveActivitiesNow: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lottery_active_activities",
				Help: "Activities currently accepting draws",
			},
		),
	}
}

func (m *LotteryMetrics) DrawCompleted(level lottery.PrizeLevel) {
	m.DrawsTotal.WithLabelValues(level.String()).Inc()
}

func (m *LotteryMetrics) DrawRejected(reason string) {
	m.DrawRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *LotteryMetrics) PersistFailed() {
	m.PersistFailures.Inc()
}

func (m *LotteryMetrics) ActiveActivities(n int) {
	m.ActiveActivitiesNow.Set(float64(n))
}

var _ lottery.Metrics = (*LotteryMetrics)(nil)
