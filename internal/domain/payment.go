package domain

import "time"

// Payment is a wallet transfer recorded when an owner pays for a trip.
type Payment struct {
	ID        string    `json:"id"`
	RequestID int64     `json:"requestId"`
	Payer     string    `json:"payer"`
	Payee     string    `json:"payee"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}
