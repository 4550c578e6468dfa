package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts successful check-ins.
	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolgate_checkins_total",
		Help: "Successful child check-ins.",
	})
	// CheckOuts counts successful check-outs.
	CheckOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolgate_checkouts_total",
		Help: "Successful child check-outs.",
	})
	// QRIssued counts QR images issued.
	QRIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolgate_qr_issued_total",
		Help: "QR code images generated for children.",
	})
	// ScanRejections counts rejected scan payloads by reason.
	ScanRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolgate_scan_rejections_total",
		Help: "Rejected QR scans.",
	}, []string{"reason"})
)
