package service

import (
	"context"
	"fmt"
	"slotswap/internal/slots/repository"
	"slotswap/pkg/model"
)

// ProtocolSlots mutates slots on behalf of the swap protocol. None of these
// operations check ownership, and none are reachable over HTTP. They must be
// called with the context of an open unit of work and return repository
// errors untranslated.
type ProtocolSlots interface {
	Load(ctx context.Context, slotID string) (*model.Slot, error)
	ForcePending(ctx context.Context, slotID string) (*model.Slot, error)
	ForceStatus(ctx context.Context, slotID string, status model.SlotStatus) (*model.Slot, error)
	TransferOwner(ctx context.Context, slotID, newOwnerID string, status model.SlotStatus) (*model.Slot, error)
}

type protocolSlots struct {
	repo repository.SlotRepository
}

func NewProtocolSlots(repo repository.SlotRepository) ProtocolSlots {
	return &protocolSlots{repo: repo}
}

func (p *protocolSlots) Load(ctx context.Context, slotID string) (*model.Slot, error) {
	return p.repo.FindByIDForUpdate(ctx, slotID)
}

func (p *protocolSlots) ForcePending(ctx context.Context, slotID string) (*model.Slot, error) {
	return p.ForceStatus(ctx, slotID, model.SlotSwapPending)
}

func (p *protocolSlots) ForceStatus(ctx context.Context, slotID string, status model.SlotStatus) (*model.Slot, error) {
	return p.mutate(ctx, slotID, status, func(*model.Slot) {})
}

func (p *protocolSlots) TransferOwner(ctx context.Context, slotID, newOwnerID string, status model.SlotStatus) (*model.Slot, error) {
	return p.mutate(ctx, slotID, status, func(slot *model.Slot) {
		slot.OwnerID = newOwnerID
	})
}

func (p *protocolSlots) mutate(ctx context.Context, slotID string, status model.SlotStatus, apply func(*model.Slot)) (*model.Slot, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid slot status %q", status)
	}

	slot, err := p.repo.FindByIDForUpdate(ctx, slotID)
	if err != nil {
		return nil, err
	}
	apply(slot)
	slot.Status = status
	if err := p.repo.Update(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}
