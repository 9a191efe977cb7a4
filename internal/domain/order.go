package domain

import "time"

// OrderRef holds the correlation keys the backend returns on confirm. The
// order and the BOM are owned by the backend; the front-end only tracks
// their identifiers.
type OrderRef struct {
	OrderID   string    `json:"order_id"`
	BOMID     string    `json:"bom_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
