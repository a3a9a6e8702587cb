package validator

import (
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"slotswap/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type SwapValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSwapValidator(log *logger.Logger) *SwapValidator {
	log.Debug("Swap validator initialized successfully")

	return &SwapValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *SwapValidator) ValidateProposal(input *model.ProposeSwapInput) error {
	return validation.Struct(v.validate, input)
}

func (v *SwapValidator) ValidateResponse(resp *model.SwapResponse) error {
	return validation.Struct(v.validate, resp)
}
