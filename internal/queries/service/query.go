package service

import (
	"context"
	slotsrepository "slotswap/internal/slots/repository"
	swapsrepository "slotswap/internal/swaps/repository"
	"slotswap/internal/users/resolver"
	"slotswap/pkg/config"
	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/model"
	"sync"
)

// QueryService builds read-only projections. It never writes, and a missing
// slot or user in a projection becomes nil or the fallback name.
type QueryService interface {
	ListOwnSlots(ctx context.Context, userID string) ([]*model.Slot, error)
	ListMarketplace(ctx context.Context, userID string) ([]model.MarketplaceSlot, error)
	ListIncoming(ctx context.Context, userID string) ([]model.IncomingRequest, error)
	ListOutgoing(ctx context.Context, userID string) ([]model.OutgoingRequest, error)
}

type queryService struct {
	slots    slotsrepository.SlotRepository
	requests swapsrepository.SwapRequestRepository
	names    resolver.DisplayNameResolver
	cfg      *config.Config
}

func NewQueryService(
	slots slotsrepository.SlotRepository,
	requests swapsrepository.SwapRequestRepository,
	names resolver.DisplayNameResolver,
	cfg *config.Config,
) QueryService {
	return &queryService{
		slots:    slots,
		requests: requests,
		names:    names,
		cfg:      cfg,
	}
}

func (s *queryService) ListOwnSlots(ctx context.Context, userID string) ([]*model.Slot, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}

	slots, err := s.slots.FindByOwner(ctx, userID)
	if err != nil {
		s.cfg.Log.WithContext(ctx).Error("Failed to list own slots", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}
	return slots, nil
}

func (s *queryService) ListMarketplace(ctx context.Context, userID string) ([]model.MarketplaceSlot, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}

	slots, err := s.slots.FindSwappable(ctx, userID)
	if err != nil {
		s.cfg.Log.WithContext(ctx).Error("Failed to list marketplace", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve marketplace", err)
	}

	owners := make([]string, len(slots))
	for i, slot := range slots {
		owners[i] = slot.OwnerID
	}
	names := s.names.ResolveDisplayNames(ctx, owners)

	listing := make([]model.MarketplaceSlot, len(slots))
	for i, slot := range slots {
		listing[i] = model.MarketplaceSlot{Slot: *slot, OwnerName: nameOf(names, slot.OwnerID)}
	}
	return listing, nil
}

func (s *queryService) ListIncoming(ctx context.Context, userID string) ([]model.IncomingRequest, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}

	reqs, err := s.requests.FindByTargetOwner(ctx, userID)
	if err != nil {
		s.cfg.Log.WithContext(ctx).Error("Failed to list incoming requests", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve incoming requests", err)
	}

	slots, names := s.enrich(ctx, reqs, func(r *model.SwapRequest) string { return r.RequesterID })

	out := make([]model.IncomingRequest, len(reqs))
	for i, req := range reqs {
		out[i] = model.IncomingRequest{
			SwapRequest:   *req,
			RequesterName: nameOf(names, req.RequesterID),
			OfferedSlot:   slots[req.OfferedSlotID],
			TargetSlot:    slots[req.TargetSlotID],
		}
	}
	return out, nil
}

func (s *queryService) ListOutgoing(ctx context.Context, userID string) ([]model.OutgoingRequest, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated()
	}

	reqs, err := s.requests.FindByRequester(ctx, userID)
	if err != nil {
		s.cfg.Log.WithContext(ctx).Error("Failed to list outgoing requests", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve outgoing requests", err)
	}

	slots, names := s.enrich(ctx, reqs, func(r *model.SwapRequest) string { return r.TargetOwnerID })

	out := make([]model.OutgoingRequest, len(reqs))
	for i, req := range reqs {
		out[i] = model.OutgoingRequest{
			SwapRequest:     *req,
			TargetOwnerName: nameOf(names, req.TargetOwnerID),
			OfferedSlot:     slots[req.OfferedSlotID],
			TargetSlot:      slots[req.TargetSlotID],
		}
	}
	return out, nil
}

// enrich loads the referenced slots and the counterpart display names
// concurrently. A failed slot lookup leaves every slot nil.
func (s *queryService) enrich(
	ctx context.Context,
	reqs []*model.SwapRequest,
	counterpart func(*model.SwapRequest) string,
) (map[string]*model.Slot, map[string]string) {
	if len(reqs) == 0 {
		return nil, nil
	}

	slotIDs := make([]string, 0, 2*len(reqs))
	userIDs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		slotIDs = append(slotIDs, req.OfferedSlotID, req.TargetSlotID)
		userIDs = append(userIDs, counterpart(req))
	}

	var (
		slots map[string]*model.Slot
		names map[string]string
		wg    sync.WaitGroup
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		slots, err = s.slots.FindByIDs(ctx, slotIDs)
		if err != nil {
			s.cfg.Log.WithContext(ctx).Warn("Failed to load referenced slots", "count", len(slotIDs), "error", err)
			slots = nil
		}
	}()

	go func() {
		defer wg.Done()
		names = s.names.ResolveDisplayNames(ctx, userIDs)
	}()

	wg.Wait()
	return slots, names
}

func nameOf(names map[string]string, userID string) string {
	if name, ok := names[userID]; ok && name != "" {
		return name
	}
	return model.UnknownUserName
}
