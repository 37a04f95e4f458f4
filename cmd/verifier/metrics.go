package main

import (
	"github.com/mailjudge/go-verifier/worker"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "verifier"

var (
	// 10ms -> 2min
	judgeTimeBuckets = []float64{
		0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120,
	}

	// 4k (1<<12) -> 4g (1<<32)
	memoryBucket = prometheus.ExponentialBuckets(1<<12, 2, 21)

	verdictCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "verdict_total",
		Help:      "Number of judged submissions by verdict",
	}, []string{"status"})

	judgeTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "judge_seconds",
		Help:      "Histogram for the time spent judging a submission",
		Buckets:   judgeTimeBuckets,
	}, []string{"status"})

	execMemHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "memory_bytes",
		Help:      "Histogram for the peak memory of the last executed test",
		Buckets:   memoryBucket,
	}, []string{"status"})
)

func initMetrics(work worker.Worker) {
	prometheus.MustRegister(verdictCount, judgeTimeHist, execMemHist)
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "queue_pending",
		Help:      "Number of submissions waiting to be judged",
	}, func() float64 {
		return float64(work.Pending())
	}))
}

func judgeObserve(res worker.Response) {
	status := res.Result.Status.String()
	verdictCount.WithLabelValues(status).Inc()
	judgeTimeHist.WithLabelValues(status).Observe(res.Duration.Seconds())
	if res.Result.Memory > 0 {
		execMemHist.WithLabelValues(status).Observe(float64(res.Result.Memory))
	}
}
