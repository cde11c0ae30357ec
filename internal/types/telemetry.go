package types

// Metric names and dimensions. All components MUST use these constants.
const (
	MetricAPILatency         = "APILatency"
	MetricActionDispatched   = "ActionDispatched"
	MetricActionRejected     = "ActionRejected"
	MetricExternalAPIFailure = "ExternalAPIFailure"
	MetricConnectCompleted   = "ConnectCompleted"
	MetricPlanUpgraded       = "PlanUpgraded"
	MetricLookupCacheHit     = "LookupCacheHit"

	DimEndpoint = "Endpoint"
	DimKind     = "Kind"
	DimReason   = "Reason"
	DimProvider = "Provider"
	DimSource   = "Source"

	// MetricNamespace is the default CloudWatch namespace.
	MetricNamespace = "TubePost"
)
