package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Requisition status constants
const (
	RequisitionStatusDraft           = "draft"
	RequisitionStatusSubmitted       = "submitted"
	RequisitionStatusPendingApproval = "pending_approval"
	RequisitionStatusApproved        = "approved"
	RequisitionStatusRejected        = "rejected"
	RequisitionStatusFulfilled       = "fulfilled"
	RequisitionStatusCancelled       = "cancelled"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Line item status constants
const (
	ItemStatusPending  = "pending"
	ItemStatusApproved = "approved"
)

// Decision actions for the approve endpoint
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// requisitionStatuses is the closed set of statuses a requisition may hold.
var requisitionStatuses = map[string]bool{
	RequisitionStatusDraft:           true,
	RequisitionStatusSubmitted:       true,
	RequisitionStatusPendingApproval: true,
	RequisitionStatusApproved:        true,
	RequisitionStatusRejected:        true,
	RequisitionStatusFulfilled:       true,
	RequisitionStatusCancelled:       true,
}

// requisitionTransitions lists the edges the workflow operations may take.
// fulfilled and cancelled are terminal states set outside the workflow;
// no operation here produces them.
var requisitionTransitions = map[string][]string{
	RequisitionStatusDraft:           {RequisitionStatusSubmitted},
	RequisitionStatusSubmitted:       {RequisitionStatusApproved, RequisitionStatusRejected},
	RequisitionStatusPendingApproval: {RequisitionStatusApproved, RequisitionStatusRejected},
}

// IsValidRequisitionStatus reports whether s is a member of the status set.
func IsValidRequisitionStatus(s string) bool {
	return requisitionStatuses[s]
}

// CanTransition reports whether the workflow allows moving from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range requisitionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidPriority reports whether p is an accepted priority level.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Requisition is a request for goods/materials routed through the approval workflow.
type Requisition struct {
	ID                 uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionNumber  string                `gorm:"type:varchar(30);uniqueIndex;not null" json:"requisition_number"`
	Title              string                `gorm:"type:varchar(255);not null" json:"title"`
	Description        string                `gorm:"type:text" json:"description"`
	Department         string                `gorm:"type:varchar(100);index" json:"department"`
	Priority           string                `gorm:"type:varchar(20);not null;default:'medium';index" json:"priority"`
	RequiredDate       *time.Time            `json:"required_date"`
	Status             string                `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	TotalEstimatedCost decimal.Decimal       `gorm:"type:numeric(14,2);not null" json:"total_estimated_cost"`
	Notes              string                `gorm:"type:text" json:"notes"`
	RejectionReason    string                `gorm:"type:text" json:"rejection_reason"`
	RequestedBy        uuid.UUID             `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester          *User                 `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ApprovedBy         *uuid.UUID            `gorm:"type:uuid" json:"approved_by"`
	Approver           *User                 `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedDate       *time.Time            `json:"approved_date"`
	Items              []RequisitionItem     `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"items"`
	Approvals          []RequisitionApproval `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"approvals"`
	CreatedAt          time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// RequisitionItem is one requested product/quantity within a requisition.
// Owned exclusively by its parent and created atomically with it.
type RequisitionItem struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"requisition_id"`
	InventoryItemID    *uuid.UUID      `gorm:"type:uuid;index" json:"inventory_item_id"`
	InventoryItem      *InventoryItem  `gorm:"foreignKey:InventoryItemID" json:"inventory_item,omitempty"`
	ItemName           string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Description        string          `gorm:"type:text" json:"description"`
	QuantityRequested  int             `gorm:"type:int;not null" json:"quantity_requested"`
	QuantityApproved   int             `gorm:"type:int;default:0" json:"quantity_approved"`
	QuantityFulfilled  int             `gorm:"type:int;default:0" json:"quantity_fulfilled"`
	UnitID             *uuid.UUID      `gorm:"type:uuid" json:"unit_id"`
	Unit               *Unit           `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	EstimatedUnitCost  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"estimated_unit_cost"`
	TotalEstimatedCost decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_estimated_cost"`
	Status             string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Notes              string          `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// RequisitionApproval is one immutable approve/reject decision in the
// requisition's history, ordered by (approval_level, created_at).
type RequisitionApproval struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionID uuid.UUID `gorm:"type:uuid;not null;index" json:"requisition_id"`
	ApproverID    uuid.UUID `gorm:"type:uuid;not null" json:"approver_id"`
	Approver      *User     `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	ApprovalLevel int       `gorm:"type:int;not null;default:1" json:"approval_level"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	Comments      string    `gorm:"type:text" json:"comments"`
	CreatedAt     time.Time `json:"created_at"`
}
