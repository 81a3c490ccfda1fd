package tribute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tributes_submitted_total",
		Help: "Tributes accepted by intake, by whether they carry an image",
	}, []string{"with_image"})

	moderatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tributes_moderated_total",
		Help: "Moderation transitions applied, by target state",
	}, []string{"target"})
)
