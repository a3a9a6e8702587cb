package model

import "testing"

func TestSlotStatus_Valid(t *testing.T) {
	tests := []struct {
		status SlotStatus
		valid  bool
		owner  bool
	}{
		{SlotBusy, true, true},
		{SlotSwappable, true, true},
		{SlotSwapPending, true, false},
		{SlotStatus("FREE"), false, false},
		{SlotStatus(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.OwnerSettable(); got != tt.owner {
				t.Errorf("OwnerSettable() = %v, want %v", got, tt.owner)
			}
		})
	}
}

func TestSwapStatus_Terminal(t *testing.T) {
	if SwapPending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
	if !SwapAccepted.Terminal() || !SwapRejected.Terminal() {
		t.Error("ACCEPTED and REJECTED must be terminal")
	}
}

func TestSwapRequest_Involves(t *testing.T) {
	req := &SwapRequest{RequesterID: "alice", TargetOwnerID: "bob"}

	if !req.Involves("alice") || !req.Involves("bob") {
		t.Error("both parties should be involved")
	}
	if req.Involves("carol") {
		t.Error("third party should not be involved")
	}
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"name wins", &User{ID: "1", Name: "Alice", Email: "alice@example.com"}, "Alice"},
		{"email fallback", &User{ID: "1", Email: "alice@example.com"}, "alice@example.com"},
		{"literal fallback", &User{ID: "1"}, UnknownUserName},
		{"missing user", nil, UnknownUserName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
