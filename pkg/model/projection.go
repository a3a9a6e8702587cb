package model

type MarketplaceSlot struct {
	Slot
	OwnerName string `json:"owner_name"`
}

// IncomingRequest is a swap request addressed to the caller. Slots are nil
// when they no longer exist.
type IncomingRequest struct {
	SwapRequest
	RequesterName string `json:"requester_name"`
	OfferedSlot   *Slot  `json:"offered_slot"`
	TargetSlot    *Slot  `json:"target_slot"`
}

type OutgoingRequest struct {
	SwapRequest
	TargetOwnerName string `json:"target_owner_name"`
	OfferedSlot     *Slot  `json:"offered_slot"`
	TargetSlot      *Slot  `json:"target_slot"`
}
