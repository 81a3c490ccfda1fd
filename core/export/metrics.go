package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribute_exports_total",
		Help: "Export artifacts built, by mode and outcome",
	}, []string{"mode", "outcome"})

	exportSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tribute_export_duration_seconds",
		Help:    "Time taken to build an export artifact",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	imagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribute_export_images_total",
		Help: "Images fetched for bundled exports, by result",
	}, []string{"result"})

	imageFetchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tribute_export_image_fetch_seconds",
		Help:    "Time taken to fetch a single export image",
		Buckets: prometheus.DefBuckets,
	})
)
