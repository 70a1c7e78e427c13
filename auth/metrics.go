package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as metric labels.
const (
	opSignIn         = "sign_in"
	opSignUp         = "sign_up"
	opResetPassword  = "reset_password"
	opUpdatePassword = "update_password"
	opConfirmEmail   = "confirm_email"
	opGetSession     = "get_session"
	opSignOut        = "sign_out"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomePanic   = "panic"
)

var (
	// operationsTotal counts auth operations by name and outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashauth_auth_operations_total",
		Help: "Total number of auth operations by outcome",
	}, []string{"operation", "outcome"})
)

func recordOperation(operation string, success bool) {
	outcome := outcomeFailure
	if success {
		outcome = outcomeSuccess
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
