package model

import "time"

type SlotStatus string

const (
	SlotBusy        SlotStatus = "BUSY"
	SlotSwappable   SlotStatus = "SWAPPABLE"
	SlotSwapPending SlotStatus = "SWAP_PENDING"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotBusy, SlotSwappable, SlotSwapPending:
		return true
	}
	return false
}

// OwnerSettable reports whether an owner may request this status directly.
// SWAP_PENDING is reachable only through a swap proposal.
func (s SlotStatus) OwnerSettable() bool {
	return s == SlotBusy || s == SlotSwappable
}

type Slot struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	StartTime   time.Time  `json:"start_time" bson:"start_time"`
	EndTime     time.Time  `json:"end_time" bson:"end_time"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	OwnerID     string     `json:"owner_id" bson:"owner_id"`
	Status      SlotStatus `json:"status" bson:"status"`
	Version     int64      `json:"version" bson:"version"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

func (s *Slot) IsPending() bool {
	return s.Status == SlotSwapPending
}

func (s *Slot) OwnedBy(userID string) bool {
	return s.OwnerID == userID
}

type CreateSlotInput struct {
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Description string    `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type SlotStatusUpdate struct {
	Status SlotStatus `json:"status" validate:"required,owner_settable"`
}
