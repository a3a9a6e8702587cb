package model

import "time"

type SwapStatus string

const (
	SwapPending  SwapStatus = "PENDING"
	SwapAccepted SwapStatus = "ACCEPTED"
	SwapRejected SwapStatus = "REJECTED"
)

func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected
}

type SwapRequest struct {
	ID            string     `json:"id" bson:"_id"`
	RequesterID   string     `json:"requester_id" bson:"requester_id"`
	TargetOwnerID string     `json:"target_owner_id" bson:"target_owner_id"`
	OfferedSlotID string     `json:"offered_slot_id" bson:"offered_slot_id"`
	TargetSlotID  string     `json:"target_slot_id" bson:"target_slot_id"`
	Message       string     `json:"message,omitempty" bson:"message,omitempty"`
	Status        SwapStatus `json:"status" bson:"status"`
	Version       int64      `json:"version" bson:"version"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	RespondedAt   *time.Time `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

func (r *SwapRequest) IsPending() bool {
	return r.Status == SwapPending
}

// Involves reports whether userID is one of the two parties of the request.
func (r *SwapRequest) Involves(userID string) bool {
	return r.RequesterID == userID || r.TargetOwnerID == userID
}

type ProposeSwapInput struct {
	OfferedSlotID string `json:"offered_slot_id" validate:"required,max=64"`
	TargetSlotID  string `json:"target_slot_id" validate:"required,max=64"`
	Message       string `json:"message,omitempty" validate:"omitempty,max=1000"`
}

type SwapResponse struct {
	Accept *bool `json:"accept" validate:"required"`
}

// SwapLock is a short-lived advisory lock held while a proposal for a slot
// pair is being checked and written.
type SwapLock struct {
	ID        string    `json:"id" bson:"_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
