package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_submitted_total",
			Help: "Total number of lead submissions by form type and result",
		},
		[]string{"form_type", "result"},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_rate_limit_rejections_total",
			Help: "Total number of submissions rejected by a rate limit",
		},
		[]string{"scope"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_notifications_total",
			Help: "Total number of lead notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	securityJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_job_runs_total",
			Help: "Total number of scheduled security job runs",
		},
		[]string{"job", "status"},
	)

	securityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "security_score",
			Help: "Last computed security score (0-100)",
		},
	)
)

// Resultados possíveis de uma submissão.
const (
	ResultAccepted    = "accepted"
	ResultInvalid     = "invalid"
	ResultRateLimited = "rate_limited"
	ResultFailed      = "failed"
)

func RecordLeadSubmission(formType, result string) {
	leadsSubmitted.WithLabelValues(formType, result).Inc()
}

// RecordRateLimitRejection conta rejeições por escopo: "lead" (memória) ou "ip" (banco).
func RecordRateLimitRejection(scope string) {
	rateLimitRejections.WithLabelValues(scope).Inc()
}

func RecordNotification(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notifications.WithLabelValues(channel, status).Inc()
}

func RecordSecurityJob(job string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	securityJobRuns.WithLabelValues(job, status).Inc()
}

func SetSecurityScore(score int) {
	securityScore.Set(float64(score))
}
