package validator

import (
	slotserrors "slotswap/internal/slots/errors"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"slotswap/pkg/validation"
	"time"

	"github.com/go-playground/validator/v10"
)

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	v := validation.New()
	if err := v.RegisterValidation("owner_settable", ownerSettable); err != nil {
		log.Fatal("Failed to register owner_settable validation", "error", err)
	}
	log.Debug("Slot validator initialized successfully")

	return &SlotValidator{
		validate: v,
		logger:   log,
	}
}

func ownerSettable(fl validator.FieldLevel) bool {
	return model.SlotStatus(fl.Field().String()).OwnerSettable()
}

// Validate checks the interval first so that a reversed or empty range is
// always reported as such, then the remaining field rules.
func (v *SlotValidator) Validate(input *model.CreateSlotInput) error {
	if !input.StartTime.IsZero() && !input.EndTime.IsZero() && !ValidInterval(input.StartTime, input.EndTime) {
		return slotserrors.ErrInvalidInterval
	}
	return validation.Struct(v.validate, input)
}

func (v *SlotValidator) ValidateStatusUpdate(update *model.SlotStatusUpdate) error {
	return validation.Struct(v.validate, update)
}

func ValidInterval(start, end time.Time) bool {
	return end.After(start)
}
