package service

import (
	"context"
	"errors"
	"slotswap/internal/slots/repository"
	"slotswap/internal/slots/validator"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	"slotswap/pkg/db/memory"
	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"testing"
	"time"
)

type fixture struct {
	service  SlotService
	protocol ProtocolSlots
	repo     repository.SlotRepository
	tx       db.TransactionManager
}

func newFixture() *fixture {
	store := memory.NewStore(100 * time.Millisecond)
	repo := repository.NewMemorySlotRepository(store)
	cfg := &config.Config{Log: logger.Discard()}
	tx := db.NewTransactionManager(store)
	return &fixture{
		service:  NewSlotService(repo, tx, validator.NewSlotValidator(cfg.Log), cfg),
		protocol: NewProtocolSlots(repo),
		repo:     repo,
		tx:       tx,
	}
}

func validInput() *model.CreateSlotInput {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &model.CreateSlotInput{
		Title:     "  Team standup  ",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func (f *fixture) create(t *testing.T, owner string) *model.Slot {
	t.Helper()
	slot, err := f.service.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return slot
}

func (f *fixture) forcePending(t *testing.T, slotID string) {
	t.Helper()
	err := f.tx.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		_, err := f.protocol.ForcePending(ctx, slotID)
		return err
	})
	if err != nil {
		t.Fatalf("ForcePending() error = %v", err)
	}
}

func status(s model.SlotStatus) *model.SlotStatusUpdate {
	return &model.SlotStatusUpdate{Status: s}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestSlotService_Create(t *testing.T) {
	f := newFixture()

	slot := f.create(t, "alice")

	if slot.Status != model.SlotBusy {
		t.Errorf("Status = %s, want BUSY", slot.Status)
	}
	if slot.OwnerID != "alice" {
		t.Errorf("OwnerID = %q, want alice", slot.OwnerID)
	}
	if slot.Title != "Team standup" {
		t.Errorf("Title = %q, want trimmed title", slot.Title)
	}
	if slot.ID == "" {
		t.Error("expected generated id")
	}

	stored, err := f.repo.FindByID(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.Status != model.SlotBusy {
		t.Errorf("stored Status = %s, want BUSY", stored.Status)
	}
}

func TestSlotService_CreateRejections(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		owner string
		input *model.CreateSlotInput
		code  string
	}{
		{"no identity", "", validInput(), apperrors.CodeUnauthenticated},
		{"end before start", "alice", &model.CreateSlotInput{Title: "x", StartTime: start, EndTime: start.Add(-time.Minute)}, apperrors.CodeInvalidInterval},
		{"end equals start", "alice", &model.CreateSlotInput{Title: "x", StartTime: start, EndTime: start}, apperrors.CodeInvalidInterval},
		{"missing end", "alice", &model.CreateSlotInput{Title: "x", StartTime: start}, apperrors.CodeValidation},
		{"blank title", "alice", &model.CreateSlotInput{Title: "   ", StartTime: start, EndTime: start.Add(time.Hour)}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFixture().service.Create(context.Background(), tt.owner, tt.input)
			assertCode(t, err, tt.code)
		})
	}
}

func TestSlotService_SetStatus(t *testing.T) {
	f := newFixture()
	slot := f.create(t, "alice")
	ctx := context.Background()

	got, err := f.service.SetStatus(ctx, slot.ID, "alice", status(model.SlotSwappable))
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if got.Status != model.SlotSwappable {
		t.Errorf("Status = %s, want SWAPPABLE", got.Status)
	}
	if got.Version != slot.Version+1 {
		t.Errorf("Version = %d, want %d", got.Version, slot.Version+1)
	}

	again, err := f.service.SetStatus(ctx, slot.ID, "alice", status(model.SlotSwappable))
	if err != nil {
		t.Fatalf("same-status SetStatus() should be a no-op, got %v", err)
	}
	if again.Version != got.Version {
		t.Errorf("no-op must not bump version: %d != %d", again.Version, got.Version)
	}
}

func TestSlotService_SetStatusRejections(t *testing.T) {
	f := newFixture()
	slot := f.create(t, "alice")
	pending := f.create(t, "alice")
	f.forcePending(t, pending.ID)
	ctx := context.Background()

	tests := []struct {
		name      string
		slotID    string
		requester string
		update    *model.SlotStatusUpdate
		code      string
	}{
		{"no identity", slot.ID, "", status(model.SlotSwappable), apperrors.CodeUnauthenticated},
		{"missing slot", "nope", "alice", status(model.SlotSwappable), apperrors.CodeNotFound},
		{"not owner", slot.ID, "bob", status(model.SlotSwappable), apperrors.CodeForbidden},
		{"pending slot", pending.ID, "alice", status(model.SlotBusy), apperrors.CodeInvalidTransition},
		{"pending not settable", slot.ID, "alice", status(model.SlotSwapPending), apperrors.CodeValidation},
		{"unknown status", slot.ID, "alice", status("FREE"), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SetStatus(ctx, tt.slotID, tt.requester, tt.update)
			assertCode(t, err, tt.code)
		})
	}

	stored, _ := f.repo.FindByID(ctx, pending.ID)
	if stored.Status != model.SlotSwapPending {
		t.Errorf("pending slot changed to %s", stored.Status)
	}
}

func TestSlotService_Delete(t *testing.T) {
	f := newFixture()
	slot := f.create(t, "alice")
	pending := f.create(t, "alice")
	f.forcePending(t, pending.ID)
	ctx := context.Background()

	assertCode(t, f.service.Delete(ctx, slot.ID, ""), apperrors.CodeUnauthenticated)
	assertCode(t, f.service.Delete(ctx, slot.ID, "bob"), apperrors.CodeForbidden)
	assertCode(t, f.service.Delete(ctx, pending.ID, "alice"), apperrors.CodeInvalidTransition)

	if err := f.service.Delete(ctx, slot.ID, "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertCode(t, f.service.Delete(ctx, slot.ID, "alice"), apperrors.CodeNotFound)

	if _, err := f.repo.FindByID(ctx, pending.ID); err != nil {
		t.Errorf("pending slot must survive, got %v", err)
	}
}

func TestSlotService_ConflictWhenWriterBusy(t *testing.T) {
	store := memory.NewStore(20 * time.Millisecond)
	repo := repository.NewMemorySlotRepository(store)
	cfg := &config.Config{Log: logger.Discard()}
	svc := NewSlotService(repo, db.NewTransactionManager(store), validator.NewSlotValidator(cfg.Log), cfg)

	slot, err := svc.Create(context.Background(), "alice", validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	held, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer held.Abort(context.Background())

	_, err = svc.SetStatus(context.Background(), slot.ID, "alice", status(model.SlotSwappable))
	assertCode(t, err, apperrors.CodeConflict)
	if !apperrors.AsAppError(err).Retryable() {
		t.Error("conflict must be retryable")
	}
}

func TestProtocolSlots(t *testing.T) {
	f := newFixture()
	slot := f.create(t, "alice")
	ctx := context.Background()

	err := f.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if _, err := f.protocol.ForcePending(txCtx, slot.ID); err != nil {
			return err
		}
		moved, err := f.protocol.TransferOwner(txCtx, slot.ID, "bob", model.SlotBusy)
		if err != nil {
			return err
		}
		if moved.OwnerID != "bob" || moved.Status != model.SlotBusy {
			t.Errorf("unexpected slot after transfer: %+v", moved)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteTransaction() error = %v", err)
	}

	stored, _ := f.repo.FindByID(ctx, slot.ID)
	if stored.OwnerID != "bob" || stored.Status != model.SlotBusy {
		t.Errorf("transfer not committed: %+v", stored)
	}
	if stored.Version != slot.Version+2 {
		t.Errorf("Version = %d, want %d", stored.Version, slot.Version+2)
	}

	if _, err := f.protocol.ForceStatus(ctx, slot.ID, "FREE"); err == nil {
		t.Error("expected error for invalid status")
	}

	_, err = f.protocol.Load(ctx, "missing")
	if err == nil || errors.Is(err, db.ErrConflict) {
		t.Errorf("expected not found, got %v", err)
	}
}
