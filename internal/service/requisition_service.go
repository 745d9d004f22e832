package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"factoryms/internal/model"
	"factoryms/internal/repository"
	ws "factoryms/internal/websocket"
	"factoryms/pkg/apperror"
)

// Actor is the authenticated user performing an operation, as resolved by the
// auth middleware.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// --- DTOs ---

type RequisitionItemRequest struct {
	InventoryItemID   string          `json:"inventory_item_id"`
	ItemName          string          `json:"item_name"`
	Description       string          `json:"description"`
	QuantityRequested int             `json:"quantity_requested"`
	UnitID            string          `json:"unit_id"`
	EstimatedUnitCost decimal.Decimal `json:"estimated_unit_cost"`
	Notes             string          `json:"notes"`
}

type CreateRequisitionRequest struct {
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Department   string                   `json:"department"`
	Priority     string                   `json:"priority"`
	RequiredDate *time.Time               `json:"required_date"`
	Notes        string                   `json:"notes"`
	Items        []RequisitionItemRequest `json:"items"`
}

type CreateRequisitionResult struct {
	ID                uuid.UUID `json:"id"`
	RequisitionNumber string    `json:"requisition_number"`
}

// UpdateRequisitionRequest carries descriptive fields only. Status is never
// writable here; transitions go through Submit and Decide.
type UpdateRequisitionRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Department   *string    `json:"department"`
	Priority     *string    `json:"priority"`
	RequiredDate *time.Time `json:"required_date"`
	Notes        *string    `json:"notes"`
}

type DecisionRequest struct {
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

type ListRequisitionsFilter struct {
	Status     string
	Department string
	Priority   string
}

type RequisitionItemResponse struct {
	ID                 string          `json:"id"`
	InventoryItemID    *string         `json:"inventory_item_id"`
	InventoryItemName  string          `json:"inventory_item_name,omitempty"`
	InventoryItemSKU   string          `json:"inventory_item_sku,omitempty"`
	ItemName           string          `json:"item_name"`
	Description        string          `json:"description"`
	QuantityRequested  int             `json:"quantity_requested"`
	QuantityApproved   int             `json:"quantity_approved"`
	QuantityFulfilled  int             `json:"quantity_fulfilled"`
	UnitName           string          `json:"unit_name,omitempty"`
	UnitAbbreviation   string          `json:"unit_abbreviation,omitempty"`
	EstimatedUnitCost  decimal.Decimal `json:"estimated_unit_cost"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
	Status             string          `json:"status"`
	Notes              string          `json:"notes"`
	CreatedAt          string          `json:"created_at"`
}

type ApprovalResponse struct {
	ID            string `json:"id"`
	ApproverID    string `json:"approver_id"`
	ApproverName  string `json:"approver_name"`
	ApprovalLevel int    `json:"approval_level"`
	Status        string `json:"status"`
	Comments      string `json:"comments"`
	CreatedAt     string `json:"created_at"`
}

type RequisitionResponse struct {
	ID                 string                    `json:"id"`
	RequisitionNumber  string                    `json:"requisition_number"`
	Title              string                    `json:"title"`
	Description        string                    `json:"description"`
	Department         string                    `json:"department"`
	Priority           string                    `json:"priority"`
	RequiredDate       *time.Time                `json:"required_date"`
	Status             string                    `json:"status"`
	TotalEstimatedCost decimal.Decimal           `json:"total_estimated_cost"`
	Notes              string                    `json:"notes"`
	RejectionReason    string                    `json:"rejection_reason"`
	RequestedBy        string                    `json:"requested_by"`
	RequestedByName    string                    `json:"requested_by_name"`
	RequestedByEmail   string                    `json:"requested_by_email"`
	ApprovedBy         *string                   `json:"approved_by"`
	ApprovedByName     string                    `json:"approved_by_name,omitempty"`
	ApprovedDate       *time.Time                `json:"approved_date"`
	Items              []RequisitionItemResponse `json:"items"`
	Approvals          []ApprovalResponse        `json:"approvals"`
	CreatedAt          string                    `json:"created_at"`
	UpdatedAt          string                    `json:"updated_at"`
}

// --- Interface ---

// RequisitionService is the requisition workflow engine: validation, the
// draft→submitted→approved/rejected state machine, role-gated visibility,
// and derived cost aggregation.
type RequisitionService interface {
	Create(ctx context.Context, actor Actor, req CreateRequisitionRequest) (CreateRequisitionResult, error)
	Get(ctx context.Context, actor Actor, id string) (RequisitionResponse, error)
	List(ctx context.Context, actor Actor, filter ListRequisitionsFilter) ([]repository.RequisitionSummary, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateRequisitionRequest) error
	Submit(ctx context.Context, actor Actor, id string) error
	Decide(ctx context.Context, actor Actor, id string, req DecisionRequest) error
	Delete(ctx context.Context, actor Actor, id string) error
	Dashboard(ctx context.Context, actor Actor) (repository.DashboardStats, error)
}

// eventPublisher decouples the service from the websocket hub for testing.
type eventPublisher interface {
	Publish(event ws.Event)
}

// decisionNotifier sends the requester an email about an approval decision.
type decisionNotifier interface {
	Send(to []string, subject, html string) error
}

type requisitionService struct {
	repo      repository.RequisitionRepository
	userRepo  repository.UserRepository
	txManager repository.TransactionManager
	activity  ActivityRecorder
	events    eventPublisher
	mailer    decisionNotifier
}

func NewRequisitionService(
	repo repository.RequisitionRepository,
	userRepo repository.UserRepository,
	txManager repository.TransactionManager,
	activity ActivityRecorder,
	events eventPublisher,
	mailer decisionNotifier,
) RequisitionService {
	return &requisitionService{
		repo:      repo,
		userRepo:  userRepo,
		txManager: txManager,
		activity:  activity,
		events:    events,
		mailer:    mailer,
	}
}

// --- Implementation ---

func (s *requisitionService) Create(ctx context.Context, actor Actor, req CreateRequisitionRequest) (CreateRequisitionResult, error) {
	if strings.TrimSpace(req.Title) == "" || len(req.Items) == 0 {
		return CreateRequisitionResult{}, apperror.Validation("Title and items are required")
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.IsValidPriority(priority) {
		return CreateRequisitionResult{}, apperror.Validation("invalid priority: must be low, medium, high or urgent")
	}

	items := make([]model.RequisitionItem, 0, len(req.Items))
	total := decimal.Zero
	for i, itemReq := range req.Items {
		if strings.TrimSpace(itemReq.ItemName) == "" || itemReq.QuantityRequested <= 0 {
			return CreateRequisitionResult{}, apperror.Validation(
				fmt.Sprintf("item %d: item_name and a positive quantity_requested are required", i+1))
		}
		if itemReq.EstimatedUnitCost.IsNegative() {
			return CreateRequisitionResult{}, apperror.Validation(
				fmt.Sprintf("item %d: estimated_unit_cost cannot be negative", i+1))
		}

		item := model.RequisitionItem{
			ItemName:          strings.TrimSpace(itemReq.ItemName),
			Description:       itemReq.Description,
			QuantityRequested: itemReq.QuantityRequested,
			EstimatedUnitCost: itemReq.EstimatedUnitCost,
			Status:            model.ItemStatusPending,
			Notes:             itemReq.Notes,
		}
		if itemReq.InventoryItemID != "" {
			parsed, err := uuid.Parse(itemReq.InventoryItemID)
			if err != nil {
				return CreateRequisitionResult{}, apperror.Validation(
					fmt.Sprintf("item %d: invalid inventory_item_id", i+1))
			}
			item.InventoryItemID = &parsed
		}
		if itemReq.UnitID != "" {
			parsed, err := uuid.Parse(itemReq.UnitID)
			if err != nil {
				return CreateRequisitionResult{}, apperror.Validation(
					fmt.Sprintf("item %d: invalid unit_id", i+1))
			}
			item.UnitID = &parsed
		}

		lineTotal := itemReq.EstimatedUnitCost.Mul(decimal.NewFromInt(int64(itemReq.QuantityRequested)))
		item.TotalEstimatedCost = lineTotal
		total = total.Add(lineTotal)
		items = append(items, item)
	}

	requisition := model.Requisition{
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		Department:         req.Department,
		Priority:           priority,
		RequiredDate:       req.RequiredDate,
		Status:             model.RequisitionStatusDraft,
		TotalEstimatedCost: total,
		Notes:              req.Notes,
		RequestedBy:        actor.ID,
		Items:              items,
	}

	// The number sequence and the requisition+items insert share one
	// transaction, so either everything lands or nothing does.
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.repo.NextRequisitionNumber(txCtx, time.Now())
		if numErr != nil {
			return numErr
		}
		requisition.RequisitionNumber = number
		return s.repo.Create(txCtx, &requisition)
	})
	if err != nil {
		return CreateRequisitionResult{}, apperror.Persistence("Requisition creation failed", err)
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityCreate,
		Summary: "Created requisition: " + requisition.RequisitionNumber,
		Detail:  fmt.Sprintf("%d items, Total: $%s", len(items), total.StringFixed(2)),
	})

	return CreateRequisitionResult{
		ID:                requisition.ID,
		RequisitionNumber: requisition.RequisitionNumber,
	}, nil
}

func (s *requisitionService) Get(ctx context.Context, actor Actor, id string) (RequisitionResponse, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return RequisitionResponse{}, apperror.NotFound("Requisition not found")
	}

	requisition, err := s.repo.FindByID(ctx, reqID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequisitionResponse{}, apperror.NotFound("Requisition not found")
		}
		return RequisitionResponse{}, apperror.Persistence("failed to load requisition", err)
	}

	// Non-privileged users can only see their own requisitions.
	if !model.IsPrivilegedRole(actor.Role) && requisition.RequestedBy != actor.ID {
		return RequisitionResponse{}, apperror.Forbidden("Access denied")
	}

	return toRequisitionResponse(*requisition), nil
}

func (s *requisitionService) List(ctx context.Context, actor Actor, filter ListRequisitionsFilter) ([]repository.RequisitionSummary, error) {
	repoFilter := repository.RequisitionFilter{
		Status:     filter.Status,
		Department: filter.Department,
		Priority:   filter.Priority,
	}
	if !model.IsPrivilegedRole(actor.Role) {
		requesterID := actor.ID
		repoFilter.RequestedBy = &requesterID
	}

	rows, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, apperror.Persistence("failed to list requisitions", err)
	}
	return rows, nil
}

func (s *requisitionService) Update(ctx context.Context, actor Actor, id string, req UpdateRequisitionRequest) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NotFound("Requisition not found")
	}

	if req.Priority != nil && !model.IsValidPriority(*req.Priority) {
		return apperror.Validation("invalid priority: must be low, medium, high or urgent")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return apperror.Validation("title cannot be empty")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Department != nil {
		updates["department"] = *req.Department
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.RequiredDate != nil {
		updates["required_date"] = *req.RequiredDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var number string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		requisition, findErr := s.repo.FindForUpdate(txCtx, reqID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Requisition not found")
			}
			return apperror.Persistence("failed to load requisition", findErr)
		}

		canUpdate := (requisition.RequestedBy == actor.ID && requisition.Status == model.RequisitionStatusDraft) ||
			model.IsPrivilegedRole(actor.Role)
		if !canUpdate {
			return apperror.Forbidden("Cannot update this requisition")
		}

		number = requisition.RequisitionNumber
		if len(updates) == 0 {
			return nil
		}
		if updateErr := s.repo.UpdateFields(txCtx, reqID, updates); updateErr != nil {
			return apperror.Persistence("Update failed", updateErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityUpdate,
		Summary: "Updated requisition: " + number,
	})
	return nil
}

func (s *requisitionService) Submit(ctx context.Context, actor Actor, id string) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NotFound("Requisition not found")
	}

	var number string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		requisition, findErr := s.repo.FindForUpdate(txCtx, reqID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Requisition not found")
			}
			return apperror.Persistence("failed to load requisition", findErr)
		}

		if requisition.RequestedBy != actor.ID {
			return apperror.Forbidden("Only the requester can submit this requisition")
		}
		if requisition.Status != model.RequisitionStatusDraft {
			return apperror.Conflict("Only draft requisitions can be submitted")
		}

		ok, updateErr := s.repo.UpdateStatusIf(txCtx, reqID,
			[]string{model.RequisitionStatusDraft},
			map[string]interface{}{"status": model.RequisitionStatusSubmitted})
		if updateErr != nil {
			return apperror.Persistence("Submit failed", updateErr)
		}
		if !ok {
			return apperror.Conflict("Only draft requisitions can be submitted")
		}

		number = requisition.RequisitionNumber
		return nil
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivitySubmit,
		Summary: "Submitted requisition: " + number,
		Detail:  "Status changed to submitted",
	})
	s.publish("requisition.submitted", reqID, number, model.RequisitionStatusSubmitted, actor)
	return nil
}

func (s *requisitionService) Decide(ctx context.Context, actor Actor, id string, req DecisionRequest) error {
	if !model.IsPrivilegedRole(actor.Role) {
		return apperror.Forbidden("Only managers and admins can approve requisitions")
	}
	if req.Action != model.DecisionApprove && req.Action != model.DecisionReject {
		return apperror.Validation("action must be 'approve' or 'reject'")
	}

	reqID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NotFound("Requisition not found")
	}

	decidable := []string{model.RequisitionStatusSubmitted, model.RequisitionStatusPendingApproval}

	var (
		number    string
		newStatus string
		requester uuid.UUID
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		requisition, findErr := s.repo.FindForUpdate(txCtx, reqID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Requisition not found")
			}
			return apperror.Persistence("failed to load requisition", findErr)
		}

		statusOK := false
		for _, st := range decidable {
			if requisition.Status == st {
				statusOK = true
				break
			}
		}
		if !statusOK {
			return apperror.Conflict("Requisition is not in a state that can be approved/rejected")
		}

		number = requisition.RequisitionNumber
		requester = requisition.RequestedBy
		now := time.Now()

		var updates map[string]interface{}
		if req.Action == model.DecisionApprove {
			newStatus = model.RequisitionStatusApproved
			updates = map[string]interface{}{
				"status":           newStatus,
				"approved_by":      actor.ID,
				"approved_date":    now,
				"rejection_reason": "",
			}
		} else {
			newStatus = model.RequisitionStatusRejected
			updates = map[string]interface{}{
				"status":           newStatus,
				"approved_by":      actor.ID,
				"approved_date":    nil,
				"rejection_reason": req.Comments,
			}
		}

		// Status-guarded update: of two concurrent decisions only one can
		// flip the row, the other sees zero rows and reports a conflict.
		ok, updateErr := s.repo.UpdateStatusIf(txCtx, reqID, decidable, updates)
		if updateErr != nil {
			return apperror.Persistence("Approval/rejection failed", updateErr)
		}
		if !ok {
			return apperror.Conflict("Requisition is not in a state that can be approved/rejected")
		}

		if req.Action == model.DecisionApprove {
			if itemsErr := s.repo.ApproveItems(txCtx, reqID); itemsErr != nil {
				return apperror.Persistence("failed to approve line items", itemsErr)
			}
		}

		approval := &model.RequisitionApproval{
			RequisitionID: reqID,
			ApproverID:    actor.ID,
			ApprovalLevel: 1,
			Status:        newStatus,
			Comments:      req.Comments,
		}
		if approvalErr := s.repo.AddApproval(txCtx, approval); approvalErr != nil {
			return apperror.Persistence("failed to record approval", approvalErr)
		}

		return nil
	})
	if err != nil {
		return err
	}

	verb := "Approved"
	if newStatus == model.RequisitionStatusRejected {
		verb = "Rejected"
	}
	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityUpdate,
		Summary: verb + " requisition: " + number,
		Detail:  req.Comments,
	})
	s.publish("requisition."+newStatus, reqID, number, newStatus, actor)
	s.notifyRequester(requester, number, newStatus, req.Comments)
	return nil
}

func (s *requisitionService) Delete(ctx context.Context, actor Actor, id string) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NotFound("Requisition not found")
	}

	var number string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		requisition, findErr := s.repo.FindForUpdate(txCtx, reqID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Requisition not found")
			}
			return apperror.Persistence("failed to load requisition", findErr)
		}

		canDelete := (requisition.RequestedBy == actor.ID && requisition.Status == model.RequisitionStatusDraft) ||
			actor.Role == model.RoleAdmin
		if !canDelete {
			return apperror.Forbidden("Cannot delete this requisition")
		}

		number = requisition.RequisitionNumber
		if delErr := s.repo.Delete(txCtx, reqID); delErr != nil {
			return apperror.Persistence("Delete failed", delErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, model.ActivityLog{
		UserID:  &actor.ID,
		Action:  model.ActivityDelete,
		Summary: "Deleted requisition: " + number,
	})
	return nil
}

func (s *requisitionService) Dashboard(ctx context.Context, actor Actor) (repository.DashboardStats, error) {
	stats, err := s.repo.DashboardStats(ctx, actor.ID)
	if err != nil {
		return repository.DashboardStats{}, apperror.Persistence("failed to compute dashboard stats", err)
	}
	return stats, nil
}

// --- Helpers ---

func (s *requisitionService) publish(eventType string, id uuid.UUID, number, status string, actor Actor) {
	if s.events == nil {
		return
	}
	s.events.Publish(ws.Event{
		Type:              eventType,
		RequisitionID:     id.String(),
		RequisitionNumber: number,
		Status:            status,
		ActorID:           actor.ID.String(),
		OccurredAt:        time.Now(),
	})
}

// notifyRequester emails the requester about the decision. Best-effort: run
// in a goroutine, failures only log.
func (s *requisitionService) notifyRequester(requesterID uuid.UUID, number, status, comments string) {
	if s.mailer == nil {
		return
	}
	go func() {
		user, err := s.userRepo.GetByID(context.Background(), requesterID.String())
		if err != nil {
			log.Printf("decision mail skipped, requester lookup failed: %v", err)
			return
		}

		subject := fmt.Sprintf("Requisition %s %s", number, status)
		body := fmt.Sprintf("<p>Your requisition <b>%s</b> has been <b>%s</b>.</p>", number, status)
		if comments != "" {
			body += fmt.Sprintf("<p>Comments: %s</p>", comments)
		}
		if err := s.mailer.Send([]string{user.Email}, subject, body); err != nil {
			log.Printf("decision mail to %s failed: %v", user.Email, err)
		}
	}()
}

func toRequisitionResponse(r model.Requisition) RequisitionResponse {
	resp := RequisitionResponse{
		ID:                 r.ID.String(),
		RequisitionNumber:  r.RequisitionNumber,
		Title:              r.Title,
		Description:        r.Description,
		Department:         r.Department,
		Priority:           r.Priority,
		RequiredDate:       r.RequiredDate,
		Status:             r.Status,
		TotalEstimatedCost: r.TotalEstimatedCost,
		Notes:              r.Notes,
		RejectionReason:    r.RejectionReason,
		RequestedBy:        r.RequestedBy.String(),
		ApprovedDate:       r.ApprovedDate,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
	}

	if r.Requester != nil {
		resp.RequestedByName = r.Requester.Username
		resp.RequestedByEmail = r.Requester.Email
	}
	if r.ApprovedBy != nil {
		id := r.ApprovedBy.String()
		resp.ApprovedBy = &id
	}
	if r.Approver != nil {
		resp.ApprovedByName = r.Approver.Username
	}

	resp.Items = make([]RequisitionItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		itemResp := RequisitionItemResponse{
			ID:                 item.ID.String(),
			ItemName:           item.ItemName,
			Description:        item.Description,
			QuantityRequested:  item.QuantityRequested,
			QuantityApproved:   item.QuantityApproved,
			QuantityFulfilled:  item.QuantityFulfilled,
			EstimatedUnitCost:  item.EstimatedUnitCost,
			TotalEstimatedCost: item.TotalEstimatedCost,
			Status:             item.Status,
			Notes:              item.Notes,
			CreatedAt:          item.CreatedAt.Format(time.RFC3339),
		}
		if item.InventoryItemID != nil {
			id := item.InventoryItemID.String()
			itemResp.InventoryItemID = &id
		}
		if item.InventoryItem != nil {
			itemResp.InventoryItemName = item.InventoryItem.Name
			itemResp.InventoryItemSKU = item.InventoryItem.SKU
		}
		if item.Unit != nil {
			itemResp.UnitName = item.Unit.Name
			itemResp.UnitAbbreviation = item.Unit.Abbreviation
		}
		resp.Items = append(resp.Items, itemResp)
	}

	resp.Approvals = make([]ApprovalResponse, 0, len(r.Approvals))
	for _, approval := range r.Approvals {
		approvalResp := ApprovalResponse{
			ID:            approval.ID.String(),
			ApproverID:    approval.ApproverID.String(),
			ApprovalLevel: approval.ApprovalLevel,
			Status:        approval.Status,
			Comments:      approval.Comments,
			CreatedAt:     approval.CreatedAt.Format(time.RFC3339),
		}
		if approval.Approver != nil {
			approvalResp.ApproverName = approval.Approver.Username
		}
		resp.Approvals = append(resp.Approvals, approvalResp)
	}

	return resp
}
