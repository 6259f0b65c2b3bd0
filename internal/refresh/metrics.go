package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	poolGauges = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stake7",
		Subsystem: "pool",
		Name:      "value",
		Help:      "Latest pool figures by kind (apr, apy, share, total_staked, reward_per_block).",
	}, []string{"kind"})

	blockGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stake7",
		Name:      "block_number",
		Help:      "Block number of the latest successful refresh.",
	})

	cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stake7",
		Subsystem: "refresh",
		Name:      "cycles_total",
		Help:      "Refresh cycles by result.",
	}, []string{"result"})

	cycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stake7",
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Duration of refresh cycles.",
		Buckets:   prometheus.DefBuckets,
	})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stake7",
		Subsystem: "view_cache",
		Name:      "lookups_total",
		Help:      "Ad-hoc wallet view lookups by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(poolGauges, blockGauge, cyclesTotal, cycleSeconds, cacheLookups)
}

func observePool(d *Dashboard) {
	m := d.Pool.Metrics
	poolGauges.WithLabelValues("apr").Set(m.APR.InexactFloat64())
	poolGauges.WithLabelValues("apy").Set(m.APY.InexactFloat64())
	poolGauges.WithLabelValues("share").Set(m.PoolSharePct.InexactFloat64())
	poolGauges.WithLabelValues("reward_per_block").Set(m.RewardPerBlock.InexactFloat64())
	poolGauges.WithLabelValues("total_staked").Set(d.Pool.State.Snapshot.TotalStakedInPool.InexactFloat64())
	blockGauge.Set(float64(d.Block))
}
