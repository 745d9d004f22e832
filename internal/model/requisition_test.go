package model

import "testing"

func TestIsValidRequisitionStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{RequisitionStatusDraft, true},
		{RequisitionStatusSubmitted, true},
		{RequisitionStatusPendingApproval, true},
		{RequisitionStatusApproved, true},
		{RequisitionStatusRejected, true},
		{RequisitionStatusFulfilled, true},
		{RequisitionStatusCancelled, true},
		{"", false},
		{"DRAFT", false},
		{"open", false},
	}

	for _, tt := range tests {
		if got := IsValidRequisitionStatus(tt.status); got != tt.want {
			t.Errorf("IsValidRequisitionStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"draft to submitted", RequisitionStatusDraft, RequisitionStatusSubmitted, true},
		{"submitted to approved", RequisitionStatusSubmitted, RequisitionStatusApproved, true},
		{"submitted to rejected", RequisitionStatusSubmitted, RequisitionStatusRejected, true},
		{"pending_approval to approved", RequisitionStatusPendingApproval, RequisitionStatusApproved, true},
		{"pending_approval to rejected", RequisitionStatusPendingApproval, RequisitionStatusRejected, true},
		{"draft to approved skips submission", RequisitionStatusDraft, RequisitionStatusApproved, false},
		{"approved is terminal", RequisitionStatusApproved, RequisitionStatusSubmitted, false},
		{"rejected is terminal", RequisitionStatusRejected, RequisitionStatusApproved, false},
		{"approved cannot revert to draft", RequisitionStatusApproved, RequisitionStatusDraft, false},
		{"fulfilled has no outgoing edges", RequisitionStatusFulfilled, RequisitionStatusApproved, false},
		{"unknown status", "open", RequisitionStatusSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !IsValidPriority(p) {
			t.Errorf("IsValidPriority(%q) = false, want true", p)
		}
	}
	for _, p := range []string{"", "critical", "MEDIUM"} {
		if IsValidPriority(p) {
			t.Errorf("IsValidPriority(%q) = true, want false", p)
		}
	}
}

func TestRoleHelpers(t *testing.T) {
	if !IsPrivilegedRole(RoleAdmin) || !IsPrivilegedRole(RoleManager) {
		t.Error("admin and manager must be privileged")
	}
	if IsPrivilegedRole(RoleUser) {
		t.Error("user must not be privileged")
	}
	if !IsValidRole(RoleUser) || IsValidRole("superadmin") {
		t.Error("role validity mismatch")
	}
}
