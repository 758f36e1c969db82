package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Access holds the Prometheus collectors for authorization decisions.
type Access struct {
	Decisions      *prometheus.CounterVec
	LookupFailures prometheus.Counter
	AdminActions   *prometheus.CounterVec
}

func NewAccess() *Access {
	return &Access{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Access decisions by capability and reason.",
		}, []string{"capability", "reason"}),
		LookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_lookup_failures_total",
			Help: "Access checks denied because a backing lookup failed.",
		}),
		AdminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_admin_actions_total",
			Help: "Role and company-admin mutations by action and outcome.",
		}, []string{"action", "outcome"}),
	}
}

// Register registers the collectors on reg (or the default registerer if nil).
// Collectors that are already registered are reused.
func (a *Access) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := register(reg, a.Decisions, func(c prometheus.Collector) { a.Decisions = c.(*prometheus.CounterVec) }); err != nil {
		return err
	}
	if err := register(reg, a.LookupFailures, func(c prometheus.Collector) { a.LookupFailures = c.(prometheus.Counter) }); err != nil {
		return err
	}
	return register(reg, a.AdminActions, func(c prometheus.Collector) { a.AdminActions = c.(*prometheus.CounterVec) })
}

func register(reg prometheus.Registerer, c prometheus.Collector, reuse func(prometheus.Collector)) error {
	err := reg.Register(c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		reuse(are.ExistingCollector)
		return nil
	}
	return err
}

// ObserveDecision counts one resolved decision. Safe on a nil receiver.
func (a *Access) ObserveDecision(capability, reason string) {
	if a == nil {
		return
	}
	a.Decisions.WithLabelValues(capability, reason).Inc()
	if reason == "lookup_failed" {
		a.LookupFailures.Inc()
	}
}

// ObserveAdminAction counts one administrative mutation attempt. Safe on a nil receiver.
func (a *Access) ObserveAdminAction(action string, err error) {
	if a == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	a.AdminActions.WithLabelValues(action, outcome).Inc()
}
