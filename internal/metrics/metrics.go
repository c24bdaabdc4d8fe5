package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "check_ins_total",
		Help:      "Visits opened at the kiosk.",
	})

	CheckOuts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "check_outs_total",
		Help:      "Visits closed.",
	})

	// CheckOutConflicts counts check-outs rejected because the visit was already closed.
	CheckOutConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "check_out_conflicts_total",
		Help:      "Check-outs rejected because the visit was already closed.",
	})

	PhotoUploads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "photo_uploads_total",
		Help:      "Visitor photos stored.",
	})

	// Notifications is labelled by result: sent, expired, failed, logged, dropped.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kiosk",
		Name:      "host_notifications_total",
		Help:      "Host notification attempts by result.",
	}, []string{"result"})
)
