package service

import (
	"context"
	"errors"
	slotserrors "slotswap/internal/slots/errors"
	"slotswap/internal/slots/repository"
	"slotswap/internal/slots/validator"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	apperrors "slotswap/pkg/errors"
	"slotswap/pkg/model"
	"slotswap/pkg/sanitizer"
	"slotswap/pkg/validation"
	"time"

	"github.com/google/uuid"
)

type SlotService interface {
	Create(ctx context.Context, ownerID string, input *model.CreateSlotInput) (*model.Slot, error)
	SetStatus(ctx context.Context, slotID, requesterID string, update *model.SlotStatusUpdate) (*model.Slot, error)
	Delete(ctx context.Context, slotID, requesterID string) error
}

type slotService struct {
	repo      repository.SlotRepository
	txManager db.TransactionManager
	validator *validator.SlotValidator
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	txManager db.TransactionManager,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		txManager: txManager,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *slotService) Create(ctx context.Context, ownerID string, input *model.CreateSlotInput) (*model.Slot, error) {
	if ownerID == "" {
		return nil, apperrors.Unauthenticated()
	}

	input.Title = sanitizer.SanitizeTitle(input.Title)
	input.Description = sanitizer.SanitizeText(input.Description)
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	slot := &model.Slot{
		ID:          uuid.NewString(),
		Title:       input.Title,
		StartTime:   input.StartTime.UTC().Truncate(time.Millisecond),
		EndTime:     input.EndTime.UTC().Truncate(time.Millisecond),
		Description: input.Description,
		OwnerID:     ownerID,
		Status:      model.SlotBusy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, slot)
	})
	if err != nil {
		s.cfg.Log.WithContext(ctx).Error("Failed to create slot", "owner_id", ownerID, "error", err)
		return nil, translate(err, slot.ID)
	}

	s.cfg.Log.WithContext(ctx).Info("Slot created",
		"id", slot.ID,
		"owner_id", ownerID,
		"start_time", slot.StartTime,
		"end_time", slot.EndTime,
	)
	return slot, nil
}

func (s *slotService) validate(ctx context.Context, input *model.CreateSlotInput) error {
	err := s.validator.Validate(input)
	if err == nil {
		return nil
	}

	s.cfg.Log.WithContext(ctx).Warn("Slot validation failed", "error", err)
	if errors.Is(err, slotserrors.ErrInvalidInterval) {
		return apperrors.InvalidInterval()
	}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid slot input", verrs.Details())
	}
	return apperrors.Validation("Invalid slot input", map[string]any{"error": err.Error()})
}

// SetStatus toggles an owned slot between BUSY and SWAPPABLE. Requesting
// the current status returns the slot unchanged.
func (s *slotService) SetStatus(ctx context.Context, slotID, requesterID string, update *model.SlotStatusUpdate) (*model.Slot, error) {
	if requesterID == "" {
		return nil, apperrors.Unauthenticated()
	}
	if err := s.validator.ValidateStatusUpdate(update); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Invalid status", verrs.Details())
		}
		return nil, apperrors.Validation("Invalid status", map[string]any{"error": err.Error()})
	}

	var result *model.Slot
	changed := false
	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		slot, err := s.loadOwned(txCtx, slotID, requesterID)
		if err != nil {
			return err
		}
		if slot.Status == update.Status {
			result = slot
			return nil
		}

		slot.Status = update.Status
		if err := s.repo.Update(txCtx, slot); err != nil {
			return err
		}
		result = slot
		changed = true
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "Failed to set slot status", slotID, requesterID, err)
		return nil, translate(err, slotID)
	}

	if changed {
		s.cfg.Log.WithContext(ctx).Info("Slot status changed", "id", slotID, "status", result.Status)
	}
	return result, nil
}

func (s *slotService) Delete(ctx context.Context, slotID, requesterID string) error {
	if requesterID == "" {
		return apperrors.Unauthenticated()
	}

	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		slot, err := s.loadOwned(txCtx, slotID, requesterID)
		if err != nil {
			return err
		}
		return s.repo.Delete(txCtx, slot.ID, slot.Version)
	})
	if err != nil {
		s.logFailure(ctx, "Failed to delete slot", slotID, requesterID, err)
		return translate(err, slotID)
	}

	s.cfg.Log.WithContext(ctx).Info("Slot deleted", "id", slotID, "owner_id", requesterID)
	return nil
}

// loadOwned applies the checks shared by every owner mutation, in order:
// existence, ownership, then the pending lock.
func (s *slotService) loadOwned(ctx context.Context, slotID, requesterID string) (*model.Slot, error) {
	slot, err := s.repo.FindByIDForUpdate(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.OwnedBy(requesterID) {
		return nil, apperrors.Forbidden("Only the slot owner can modify this slot")
	}
	if slot.IsPending() {
		return nil, apperrors.InvalidTransition(slotID)
	}
	return slot, nil
}

func (s *slotService) logFailure(ctx context.Context, msg, slotID, requesterID string, err error) {
	log := s.cfg.Log.WithContext(ctx)
	if apperrors.IsAppError(err) || errors.Is(err, slotserrors.ErrNotFound) || db.IsConflict(err) {
		log.Warn(msg, "id", slotID, "requester_id", requesterID, "error", err)
		return
	}
	log.Error(msg, "id", slotID, "requester_id", requesterID, "error", err)
}

func translate(err error, slotID string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, slotserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Slot", slotID)
	}
	if db.IsConflict(err) {
		return apperrors.Conflict("Slot was modified concurrently, please retry")
	}
	return apperrors.Internal("Failed to process slot", err)
}
