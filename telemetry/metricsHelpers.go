package telemetry

// IncInscriptionsStarted increments the started counter.
func IncInscriptionsStarted() {
	inscriptionsStartedTotal.Inc()
}

// IncInscriptionsCompleted increments the completed counter.
func IncInscriptionsCompleted() {
	inscriptionsCompletedTotal.Inc()
}

// Increments the inscription failure counter.
// Reasons: "rejected", "provider", "db".
func IncInscriptionsFailed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	inscriptionsFailedTotal.WithLabelValues(reason).Inc()
}

// AddInscriptionsExpired adds the number expired by one sweep pass.
func AddInscriptionsExpired(n int) {
	inscriptionsExpiredTotal.Add(float64(n))
}

// Increments the authorized counter labeled by full approval.
func IncTransactionsAuthorized(fullyAuthorized bool) {
	lbl := "false"
	if fullyAuthorized {
		lbl = "true"
	}
	transactionsAuthorizedTotal.WithLabelValues(lbl).Inc()
}

// Increments the rejected counter with a bounded reason.
// Reasons: "validation", "duplicate", "no_inscription", "provider", "db".
func IncTransactionsRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	transactionsRejectedTotal.WithLabelValues(reason).Inc()
}

// Increments the provider failure counter for one operation.
func IncProviderErrors(operation string) {
	providerErrorsTotal.WithLabelValues(operation).Inc()
}
