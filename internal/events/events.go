// Package events publishes domain events to Kafka. Payloads are
// checked against an embedded JSON schema before they leave the
// process, so consumers never see a malformed event.
package events

import "time"

// TransactionAuthorized is emitted after an authorization has been
// persisted locally.
type TransactionAuthorized struct {
	TransactionID   string                    `json:"transaction_id"`
	Username        string                    `json:"username"`
	BuyOrder        string                    `json:"buy_order"`
	TotalAmount     int64                     `json:"total_amount"`
	FullyAuthorized bool                      `json:"fully_authorized"`
	Details         []TransactionDetailRecord `json:"details"`
	AuthorizedAt    time.Time                 `json:"authorized_at"`
}

type TransactionDetailRecord struct {
	CommerceCode string `json:"commerce_code"`
	BuyOrder     string `json:"buy_order"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	ResponseCode int    `json:"response_code"`
}
