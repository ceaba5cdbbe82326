package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequestsTotal counts the API requests by route, method and status code.
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lanes_http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"path", "method", "status"},
)

// HTTPRequestDuration records the latency of the API requests.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lanes_http_request_duration_seconds",
		Help:    "Latency in seconds of HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"path", "method"},
)

// Push notifications metrics
var (
	PushMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanes_push_messages_total",
			Help: "Number of push messages sent by result (ok, unregistered, error)",
		},
		[]string{"result"},
	)

	PushRequestsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lanes_push_requests_failed_total",
			Help: "Number of push gateway requests that failed",
		},
	)
)

// EmailsSent counts the emails handed to the mail gateway by result (ok, error).
var EmailsSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lanes_emails_sent_total",
		Help: "Number of emails sent by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(PushMessagesTotal, PushRequestsFailed)
	prometheus.MustRegister(EmailsSent)
}
