package service

import (
	"context"
	"errors"
	slotsrepository "slotswap/internal/slots/repository"
	swapsrepository "slotswap/internal/swaps/repository"
	usersrepository "slotswap/internal/users/repository"
	"slotswap/internal/users/resolver"
	"slotswap/pkg/config"
	"slotswap/pkg/db/memory"
	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	service  QueryService
	slots    slotsrepository.SlotRepository
	requests swapsrepository.SwapRequestRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(time.Second)
	cfg := &config.Config{Log: logger.Discard()}

	users := usersrepository.NewMemoryUserRepository(store)
	for _, u := range []*model.User{
		{ID: "x", Name: "Xavier"},
		{ID: "y", Email: "y@example.com"},
	} {
		if err := users.Upsert(context.Background(), u); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	f := &fixture{
		slots:    slotsrepository.NewMemorySlotRepository(store),
		requests: swapsrepository.NewMemorySwapRequestRepository(store),
	}
	f.service = NewQueryService(f.slots, f.requests, resolver.NewDirectoryResolver(users, cfg.Log), cfg)
	return f
}

func (f *fixture) slot(t *testing.T, id, owner string, status model.SlotStatus, hour int) *model.Slot {
	t.Helper()
	start := base.Add(time.Duration(hour) * time.Hour)
	slot := &model.Slot{ID: id, Title: id, StartTime: start, EndTime: start.Add(time.Hour), OwnerID: owner, Status: status, Version: 1}
	if err := f.slots.Create(context.Background(), slot); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return slot
}

func (f *fixture) request(t *testing.T, id, requester, target, offered, targetSlot string, minute int) {
	t.Helper()
	req := &model.SwapRequest{
		ID:            id,
		RequesterID:   requester,
		TargetOwnerID: target,
		OfferedSlotID: offered,
		TargetSlotID:  targetSlot,
		Status:        model.SwapPending,
		Version:       1,
		CreatedAt:     base.Add(time.Duration(minute) * time.Minute),
	}
	if err := f.requests.Create(context.Background(), req); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestQueryService_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ListOwnSlots(ctx, "")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.service.ListMarketplace(ctx, "")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.service.ListIncoming(ctx, "")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = f.service.ListOutgoing(ctx, "")
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestQueryService_ListOwnSlots(t *testing.T) {
	f := newFixture(t)
	f.slot(t, "late", "x", model.SlotBusy, 5)
	f.slot(t, "early", "x", model.SlotSwapPending, 1)
	f.slot(t, "other", "y", model.SlotSwappable, 2)

	slots, err := f.service.ListOwnSlots(context.Background(), "x")
	if err != nil {
		t.Fatalf("ListOwnSlots() error = %v", err)
	}
	if len(slots) != 2 || slots[0].ID != "early" || slots[1].ID != "late" {
		t.Errorf("unexpected slots %v", slots)
	}
}

func TestQueryService_ListMarketplace(t *testing.T) {
	f := newFixture(t)
	f.slot(t, "mine", "x", model.SlotSwappable, 1)
	f.slot(t, "ys", "y", model.SlotSwappable, 2)
	f.slot(t, "ybusy", "y", model.SlotBusy, 3)
	f.slot(t, "ypending", "y", model.SlotSwapPending, 4)
	f.slot(t, "ghost", "nobody", model.SlotSwappable, 5)

	listing, err := f.service.ListMarketplace(context.Background(), "x")
	if err != nil {
		t.Fatalf("ListMarketplace() error = %v", err)
	}

	if len(listing) != 2 {
		t.Fatalf("expected 2 marketplace slots, got %d", len(listing))
	}
	if listing[0].ID != "ys" || listing[0].OwnerName != "y@example.com" {
		t.Errorf("unexpected first entry %+v", listing[0])
	}
	if listing[1].ID != "ghost" || listing[1].OwnerName != model.UnknownUserName {
		t.Errorf("unexpected second entry %+v", listing[1])
	}
}

func TestQueryService_IncomingAndOutgoing(t *testing.T) {
	f := newFixture(t)
	f.slot(t, "a", "x", model.SlotSwapPending, 1)
	f.slot(t, "b", "y", model.SlotSwapPending, 2)
	f.request(t, "r1", "y", "x", "b", "a", 0)
	f.request(t, "r2", "y", "x", "deleted", "a", 5)

	incoming, err := f.service.ListIncoming(context.Background(), "x")
	if err != nil {
		t.Fatalf("ListIncoming() error = %v", err)
	}
	if len(incoming) != 2 || incoming[0].ID != "r2" {
		t.Fatalf("expected newest first, got %d entries", len(incoming))
	}
	if incoming[0].OfferedSlot != nil {
		t.Error("deleted slot should be nil")
	}
	if incoming[0].TargetSlot == nil || incoming[0].TargetSlot.ID != "a" {
		t.Error("existing slot should be attached")
	}
	if incoming[1].RequesterName != "y@example.com" {
		t.Errorf("RequesterName = %q", incoming[1].RequesterName)
	}

	outgoing, err := f.service.ListOutgoing(context.Background(), "y")
	if err != nil {
		t.Fatalf("ListOutgoing() error = %v", err)
	}
	if len(outgoing) != 2 || outgoing[1].TargetOwnerName != "Xavier" {
		t.Errorf("unexpected outgoing %+v", outgoing)
	}
	if outgoing[1].OfferedSlot == nil || outgoing[1].OfferedSlot.ID != "b" {
		t.Error("offered slot should be attached")
	}

	none, err := f.service.ListOutgoing(context.Background(), "x")
	if err != nil || len(none) != 0 {
		t.Errorf("ListOutgoing(x) = %v, %v", none, err)
	}
}

type failingSlots struct {
	slotsrepository.SlotRepository
}

func (failingSlots) FindByIDs(context.Context, []string) (map[string]*model.Slot, error) {
	return nil, errors.New("storage offline")
}

func TestQueryService_DegradesWhenSlotLookupFails(t *testing.T) {
	f := newFixture(t)
	f.slot(t, "a", "x", model.SlotSwapPending, 1)
	f.request(t, "r1", "y", "x", "b", "a", 0)

	cfg := &config.Config{Log: logger.Discard()}
	names := resolver.NewDirectoryResolver(usersrepository.NewMemoryUserRepository(memory.NewStore(time.Second)), cfg.Log)
	svc := NewQueryService(failingSlots{f.slots}, f.requests, names, cfg)

	incoming, err := svc.ListIncoming(context.Background(), "x")
	if err != nil {
		t.Fatalf("ListIncoming() should degrade, got %v", err)
	}
	if len(incoming) != 1 || incoming[0].TargetSlot != nil || incoming[0].RequesterName != model.UnknownUserName {
		t.Errorf("unexpected projection %+v", incoming)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
