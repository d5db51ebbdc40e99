// internal/workers/tasks.go
package workers

// Task type names routed through the asynq queue.
const (
	TypeRestockAlert  = "inventory:restock_alert"
	TypeReportRefresh = "inventory:report_refresh"
)
