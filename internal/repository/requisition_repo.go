package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factoryms/internal/model"
)

// RequisitionFilter narrows List results. Empty fields are ignored;
// RequestedBy restricts visibility for non-privileged roles.
type RequisitionFilter struct {
	Status      string
	Department  string
	Priority    string
	RequestedBy *uuid.UUID
}

/// RequisitionSummary is a List row: the requisition joined with requester and
// approver names plus line-item aggregates.
type RequisitionSummary struct {
	ID                     uuid.UUID       `json:"id"`
	RequisitionNumber      string          `json:"requisition_number"`
	Title                  string          `json:"title"`
	Department             string          `json:"department"`
	Priority               string          `json:"priority"`
	Status                 string          `json:"status"`
	TotalEstimatedCost     decimal.Decimal `json:"total_estimated_cost"`
	RequiredDate           *time.Time      `json:"required_date"`
	RequestedBy            uuid.UUID       `json:"requested_by"`
	RequestedByName        string          `json:"requested_by_name"`
	RequestedByEmail       string          `json:"requested_by_email"`
	ApprovedByName         string          `json:"approved_by_name"`
	ItemCount              int64           `json:"item_count"`
	TotalQuantityRequested int64           `json:"total_quantity_requested"`
	TotalQuantityApproved  int64           `json:"total_quantity_approved"`
	TotalQuantityFulfilled int64           `json:"total_quantity_fulfilled"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// DashboardStats carries the requisition counts for the dashboard cards.
type DashboardStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Mine     int64 `json:"my_requisitions"`
}

// RequisitionRepository is the persistence boundary of the workflow engine.
// Every method resolves the ambient transaction from ctx, so multi-step
// mutations composed by the service commit or roll back as one.
type RequisitionRepository interface {
	Create(ctx context.Context, req *model.Requisition) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Requisition, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Requisition, error)
	List(ctx context.Context, filter RequisitionFilter) ([]RequisitionSummary, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateStatusIf(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error)
	ApproveItems(ctx context.Context, requisitionID uuid.UUID) error
	AddApproval(ctx context.Context, approval *model.RequisitionApproval) error
	Delete(ctx context.Context, id uuid.UUID) error
	DashboardStats(ctx context.Context, userID uuid.UUID) (DashboardStats, error)
	NextRequisitionNumber(ctx context.Context, now time.Time) (string, error)
}

type requisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) RequisitionRepository {
	return &requisitionRepository{db: db}
}

// Create persists the requisition together with its line items.
// GORM writes the Items association in the same statement batch, and the
// caller is expected to wrap Create in a transaction.
func (r *requisitionRepository) Create(ctx context.Context, req *model.Requisition) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requisitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
	var req model.Requisition
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Approver").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("requisition_items.created_at")
		}).
		Preload("Items.InventoryItem").
		Preload("Items.Unit").
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("requisition_approvals.approval_level, requisition_approvals.created_at")
		}).
		Preload("Approvals.Approver").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindForUpdate locks the requisition row for the duration of the ambient
// transaction so concurrent transitions serialize on it.
func (r *requisitionRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
	var req model.Requisition
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requisitionRepository) List(ctx context.Context, filter RequisitionFilter) ([]RequisitionSummary, error) {
	query := GetDB(ctx, r.db).
		Table("requisitions AS r").
		Select(`r.id, r.requisition_number, r.title, r.department, r.priority, r.status,
			r.total_estimated_cost, r.required_date, r.requested_by, r.created_at, r.updated_at,
			u.username AS requested_by_name,
			u.email AS requested_by_email,
			COALESCE(a.username, '') AS approved_by_name,
			COUNT(ri.id) AS item_count,
			COALESCE(SUM(ri.quantity_requested), 0) AS total_quantity_requested,
			COALESCE(SUM(ri.quantity_approved), 0) AS total_quantity_approved,
			COALESCE(SUM(ri.quantity_fulfilled), 0) AS total_quantity_fulfilled`).
		Joins("LEFT JOIN users u ON r.requested_by = u.id").
		Joins("LEFT JOIN users a ON r.approved_by = a.id").
		Joins("LEFT JOIN requisition_items ri ON ri.requisition_id = r.id")

	if filter.Status != "" {
		query = query.Where("r.status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("r.department = ?", filter.Department)
	}
	if filter.Priority != "" {
		query = query.Where("r.priority = ?", filter.Priority)
	}
	if filter.RequestedBy != nil {
		query = query.Where("r.requested_by = ?", *filter.RequestedBy)
	}

	var rows []RequisitionSummary
	err := query.
		Group("r.id, u.username, u.email, a.username").
		Order("r.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *requisitionRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return GetDB(ctx, r.db).
		Model(&model.Requisition{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatusIf applies updates only when the current status is still one of
// allowedFrom. Returns false when another transition won the race.
func (r *requisitionRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.Requisition{}).
		Where("id = ? AND status IN ?", id, allowedFrom).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApproveItems bulk-transitions every line item of the requisition to
// approved with the full requested quantity granted.
func (r *requisitionRepository) ApproveItems(ctx context.Context, requisitionID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Model(&model.RequisitionItem{}).
		Where("requisition_id = ?", requisitionID).
		Updates(map[string]interface{}{
			"status":            model.ItemStatusApproved,
			"quantity_approved": gorm.Expr("quantity_requested"),
		}).Error
}

func (r *requisitionRepository) AddApproval(ctx context.Context, approval *model.RequisitionApproval) error {
	return GetDB(ctx, r.db).Create(approval).Error
}

// Delete removes the requisition and everything it owns.
func (r *requisitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("requisition_id = ?", id).Delete(&model.RequisitionItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("requisition_id = ?", id).Delete(&model.RequisitionApproval{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Requisition{}).Error
}

func (r *requisitionRepository) DashboardStats(ctx context.Context, userID uuid.UUID) (DashboardStats, error) {
	db := GetDB(ctx, r.db)
	var stats DashboardStats

	counts := []struct {
		dest  *int64
		scope func(*gorm.DB) *gorm.DB
	}{
		{&stats.Total, func(q *gorm.DB) *gorm.DB { return q }},
		{&stats.Pending, func(q *gorm.DB) *gorm.DB {
			return q.Where("status IN ?", []string{model.RequisitionStatusSubmitted, model.RequisitionStatusPendingApproval})
		}},
		{&stats.Approved, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", model.RequisitionStatusApproved)
		}},
		{&stats.Rejected, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", model.RequisitionStatusRejected)
		}},
		{&stats.Mine, func(q *gorm.DB) *gorm.DB {
			return q.Where("requested_by = ?", userID)
		}},
	}

	for _, c := range counts {
		if err := c.scope(db.Model(&model.Requisition{})).Count(c.dest).Error; err != nil {
			return DashboardStats{}, err
		}
	}

	return stats, nil
}

// NextRequisitionNumber issues the next REQ-<YYYYMMDD>-<seq> number for the
// day. A transaction-scoped advisory lock on the prefix serializes concurrent
// callers; the unique index on requisition_number backstops it.
func (r *requisitionRepository) NextRequisitionNumber(ctx context.Context, now time.Time) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "REQ-" + now.Format("20060102") + "-"

	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
		return "", err
	}

	var numbers []string
	if err := db.Model(&model.Requisition{}).
		Where("requisition_number LIKE ?", prefix+"%").
		Pluck("requisition_number", &numbers).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%04d", prefix, nextSequence(prefix, numbers)), nil
}

// nextSequence returns the highest suffix among the day's numbers plus one.
// Max, not count: rows are hard-deleted, so counting survivors would re-issue
// a number that is still taken.
func nextSequence(prefix string, numbers []string) int {
	maxSeq := 0
	for _, number := range numbers {
		seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}
