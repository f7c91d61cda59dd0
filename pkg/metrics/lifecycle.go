package metrics

import "time"

// LifecycleMetrics observes the lifecycle controller.
//
// Pass nil to disable collection.
type LifecycleMetrics interface {
	// RecordOperation records a finished supervised operation. outcome is
	// "success" or "failure".
	RecordOperation(operation, outcome string, duration time.Duration)

	// RecordRejection records an operation refused before it started.
	// reason is "migration" or "in_progress".
	RecordRejection(operation, reason string)

	// SetState publishes the current controller state.
	SetState(state string)
}

// ServiceMetrics observes the service directory.
//
// Pass nil to disable collection.
type ServiceMetrics interface {
	// SetConsumers publishes how many add-ons hold data for slug.
	SetConsumers(slug string, count int)

	// RecordDataChange counts a payload change. action is "set" or "delete".
	RecordDataChange(slug, action string)
}
