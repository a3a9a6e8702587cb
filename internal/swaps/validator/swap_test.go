package validator

import (
	"errors"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"slotswap/pkg/validation"
	"strings"
	"testing"
)

func TestSwapValidator_ValidateProposal(t *testing.T) {
	v := NewSwapValidator(logger.Discard())

	tests := []struct {
		name    string
		input   model.ProposeSwapInput
		wantErr bool
		field   string
	}{
		{"valid", model.ProposeSwapInput{OfferedSlotID: "b", TargetSlotID: "a"}, false, ""},
		{"with message", model.ProposeSwapInput{OfferedSlotID: "b", TargetSlotID: "a", Message: "trade?"}, false, ""},
		{"missing offered", model.ProposeSwapInput{TargetSlotID: "a"}, true, "offered_slot_id"},
		{"missing target", model.ProposeSwapInput{OfferedSlotID: "b"}, true, "target_slot_id"},
		{"id too long", model.ProposeSwapInput{OfferedSlotID: strings.Repeat("b", 65), TargetSlotID: "a"}, true, "offered_slot_id"},
		{"message too long", model.ProposeSwapInput{OfferedSlotID: "b", TargetSlotID: "a", Message: strings.Repeat("x", 1001)}, true, "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateProposal(&tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateProposal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			var verrs validation.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if _, ok := verrs.Details()[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, verrs.Details())
			}
		})
	}
}

func TestSwapValidator_ValidateResponse(t *testing.T) {
	v := NewSwapValidator(logger.Discard())
	accept := false

	if err := v.ValidateResponse(&model.SwapResponse{Accept: &accept}); err != nil {
		t.Errorf("explicit false must be valid, got %v", err)
	}
	if err := v.ValidateResponse(&model.SwapResponse{}); err == nil {
		t.Error("missing decision must be rejected")
	}
}
