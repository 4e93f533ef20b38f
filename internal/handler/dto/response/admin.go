package response

import (
	"time"

	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type AnomalyResponse struct {
	IntentID       uuid.UUID  `json:"intentId"`
	UserID         uuid.UUID  `json:"userId"`
	GatewayOrderID string     `json:"gatewayOrderId"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	ConfirmedAt    time.Time  `json:"confirmedAt"`
	LastError      *string    `json:"lastError,omitempty"`
	LastErrorAt    *time.Time `json:"lastErrorAt,omitempty"`
}

type AnomalyListResponse struct {
	Items      []AnomalyResponse `json:"items"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

func FromAnomalies(rows []*queries.AnomalyView, next *queries.Cursor) (*AnomalyListResponse, error) {
	items := make([]AnomalyResponse, 0, len(rows))
	if err := copier.Copy(&items, rows); err != nil {
		return nil, err
	}
	resp := &AnomalyListResponse{Items: items}
	if next != nil {
		resp.NextCursor = &next.After
	}
	return resp, nil
}

type AuditEntryResponse struct {
	ID              int64      `json:"id"`
	GatewayOrderID  string     `json:"gatewayOrderId"`
	PaymentIntentID *uuid.UUID `json:"paymentIntentId,omitempty"`
	Channel         string     `json:"channel"`
	Outcome         string     `json:"outcome"`
	Detail          string     `json:"detail,omitempty"`
	OccurredAt      time.Time  `json:"occurredAt"`
}

func FromAuditEntries(rows []*queries.AuditEntryView) ([]AuditEntryResponse, error) {
	items := make([]AuditEntryResponse, 0, len(rows))
	if err := copier.Copy(&items, rows); err != nil {
		return nil, err
	}
	return items, nil
}
