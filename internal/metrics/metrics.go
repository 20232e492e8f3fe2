package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CommandsTotal counts handled chat commands by command name and outcome
	// (ok, rejected, error).
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrowdesk",
		Name:      "commands_total",
		Help:      "Chat commands handled, by command and outcome.",
	}, []string{"command", "outcome"})

	// NotificationsTotal counts outbound notification deliveries by outcome
	// (sent, failed).
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrowdesk",
		Name:      "notifications_total",
		Help:      "Outbound notifications, by delivery outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.DefaultRegisterer.MustRegister(CommandsTotal, NotificationsTotal)
}
