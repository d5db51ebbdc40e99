// internal/core/ports/tasks.go
package ports

import "context"

// TaskEnqueuer is the port for handing work to the background queue. Enqueue
// failures are reported but never abort the inventory operation that
// triggered them.
type TaskEnqueuer interface {
	EnqueueRestockAlert(ctx context.Context, payload RestockAlertPayload) error
	EnqueueReportRefresh(ctx context.Context) error
}

// RestockAlertPayload describes an item that just sold out.
type RestockAlertPayload struct {
	SlotID   string `json:"slot_id"`
	SlotCode string `json:"slot_code"`
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
}
