package model

import "time"

type WorkOrderStatus string

const (
	WorkOrderPending    WorkOrderStatus = "pending"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

// IsTerminal reports whether no further work may be logged against the order.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderCompleted || s == WorkOrderCancelled
}

// WorkOrder is the slice of the workshop's work-order record this service
// reads. The full record (vehicle, customer, parts) is owned elsewhere.
type WorkOrder struct {
	ID          string          `json:"id" bson:"_id,omitempty"`
	OrgID       string          `json:"orgId" bson:"orgId"`
	Number      string          `json:"number" bson:"number"`
	Status      WorkOrderStatus `json:"status" bson:"status"`
	Description string          `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" bson:"createdAt"`
}
