package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"factoryms/internal/model"
	"factoryms/internal/repository"
	ws "factoryms/internal/websocket"
	"factoryms/pkg/apperror"
)

// --- Test doubles ---

type fakeRequisitionRepo struct {
	CreateFn                func(ctx context.Context, req *model.Requisition) error
	FindByIDFn              func(ctx context.Context, id uuid.UUID) (*model.Requisition, error)
	FindForUpdateFn         func(ctx context.Context, id uuid.UUID) (*model.Requisition, error)
	ListFn                  func(ctx context.Context, filter repository.RequisitionFilter) ([]repository.RequisitionSummary, error)
	UpdateFieldsFn          func(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateStatusIfFn        func(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error)
	ApproveItemsFn          func(ctx context.Context, requisitionID uuid.UUID) error
	AddApprovalFn           func(ctx context.Context, approval *model.RequisitionApproval) error
	DeleteFn                func(ctx context.Context, id uuid.UUID) error
	DashboardStatsFn        func(ctx context.Context, userID uuid.UUID) (repository.DashboardStats, error)
	NextRequisitionNumberFn func(ctx context.Context, now time.Time) (string, error)
}

func (f *fakeRequisitionRepo) Create(ctx context.Context, req *model.Requisition) error {
	return f.CreateFn(ctx, req)
}
func (f *fakeRequisitionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
	return f.FindByIDFn(ctx, id)
}
func (f *fakeRequisitionRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
	return f.FindForUpdateFn(ctx, id)
}
func (f *fakeRequisitionRepo) List(ctx context.Context, filter repository.RequisitionFilter) ([]repository.RequisitionSummary, error) {
	return f.ListFn(ctx, filter)
}
func (f *fakeRequisitionRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return f.UpdateFieldsFn(ctx, id, updates)
}
func (f *fakeRequisitionRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error) {
	return f.UpdateStatusIfFn(ctx, id, allowedFrom, updates)
}
func (f *fakeRequisitionRepo) ApproveItems(ctx context.Context, requisitionID uuid.UUID) error {
	return f.ApproveItemsFn(ctx, requisitionID)
}
func (f *fakeRequisitionRepo) AddApproval(ctx context.Context, approval *model.RequisitionApproval) error {
	return f.AddApprovalFn(ctx, approval)
}
func (f *fakeRequisitionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return f.DeleteFn(ctx, id)
}
func (f *fakeRequisitionRepo) DashboardStats(ctx context.Context, userID uuid.UUID) (repository.DashboardStats, error) {
	return f.DashboardStatsFn(ctx, userID)
}
func (f *fakeRequisitionRepo) NextRequisitionNumber(ctx context.Context, now time.Time) (string, error) {
	return f.NextRequisitionNumberFn(ctx, now)
}

type fakeUserRepo struct {
	GetByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.GetByIDFn != nil {
		return f.GetByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	return nil, 0, nil
}
func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }
func (f *fakeUserRepo) Delete(ctx context.Context, id string) error        { return nil }
func (f *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return nil
}
func (f *fakeUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error { return nil }

// passthroughTx executes the callback without a real transaction.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordedActivity struct {
	entries []model.ActivityLog
}

func (r *recordedActivity) Record(ctx context.Context, entry model.ActivityLog) {
	r.entries = append(r.entries, entry)
}

type recordedEvents struct {
	events []ws.Event
}

func (r *recordedEvents) Publish(event ws.Event) {
	r.events = append(r.events, event)
}

func newTestService(repo *fakeRequisitionRepo) (*requisitionService, *recordedActivity, *recordedEvents) {
	activity := &recordedActivity{}
	events := &recordedEvents{}
	svc := &requisitionService{
		repo:      repo,
		userRepo:  &fakeUserRepo{},
		txManager: passthroughTx{},
		activity:  activity,
		events:    events,
	}
	return svc, activity, events
}

// --- Create ---

func TestCreate_ComputesTotalCost(t *testing.T) {
	var stored *model.Requisition
	repo := &fakeRequisitionRepo{
		NextRequisitionNumberFn: func(ctx context.Context, now time.Time) (string, error) {
			return "REQ-20260901-0001", nil
		},
		CreateFn: func(ctx context.Context, req *model.Requisition) error {
			req.ID = uuid.New()
			stored = req
			return nil
		},
	}
	svc, activity, _ := newTestService(repo)
	actor := Actor{ID: uuid.New(), Role: model.RoleUser}

	result, err := svc.Create(context.Background(), actor, CreateRequisitionRequest{
		Title: "Workshop restock",
		Items: []RequisitionItemRequest{
			{ItemName: "Gloves", QuantityRequested: 10, EstimatedUnitCost: decimal.RequireFromString("1.50")},
			{ItemName: "Goggles", QuantityRequested: 2, EstimatedUnitCost: decimal.RequireFromString("5.00")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "REQ-20260901-0001", result.RequisitionNumber)
	assert.Equal(t, model.RequisitionStatusDraft, stored.Status)
	assert.Equal(t, model.PriorityMedium, stored.Priority)
	assert.Equal(t, actor.ID, stored.RequestedBy)
	assert.True(t, stored.TotalEstimatedCost.Equal(decimal.RequireFromString("25.00")),
		"total = 10*1.50 + 2*5.00, got %s", stored.TotalEstimatedCost)
	assert.True(t, stored.Items[0].TotalEstimatedCost.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, model.ItemStatusPending, stored.Items[0].Status)
	assert.Len(t, activity.entries, 1)
	assert.Equal(t, model.ActivityCreate, activity.entries[0].Action)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(&fakeRequisitionRepo{})
	actor := Actor{ID: uuid.New(), Role: model.RoleUser}
	item := RequisitionItemRequest{ItemName: "Bolt", QuantityRequested: 1}

	tests := []struct {
		name string
		req  CreateRequisitionRequest
	}{
		{"missing title", CreateRequisitionRequest{Items: []RequisitionItemRequest{item}}},
		{"no items", CreateRequisitionRequest{Title: "Restock"}},
		{"invalid priority", CreateRequisitionRequest{Title: "Restock", Priority: "critical", Items: []RequisitionItemRequest{item}}},
		{"zero quantity", CreateRequisitionRequest{Title: "Restock", Items: []RequisitionItemRequest{
			{ItemName: "Bolt", QuantityRequested: 0},
		}}},
		{"negative cost", CreateRequisitionRequest{Title: "Restock", Items: []RequisitionItemRequest{
			{ItemName: "Bolt", QuantityRequested: 1, EstimatedUnitCost: decimal.RequireFromString("-1")},
		}}},
		{"blank item name", CreateRequisitionRequest{Title: "Restock", Items: []RequisitionItemRequest{
			{ItemName: "   ", QuantityRequested: 1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), actor, tt.req)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "want validation error, got %v", err)
		})
	}
}

// --- Get / visibility ---

func TestGet_VisibilityByRole(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	reqID := uuid.New()

	repo := &fakeRequisitionRepo{
		FindByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
			return &model.Requisition{ID: reqID, RequestedBy: owner, Status: model.RequisitionStatusDraft}, nil
		},
	}
	svc, _, _ := newTestService(repo)

	_, err := svc.Get(context.Background(), Actor{ID: other, Role: model.RoleUser}, reqID.String())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	_, err = svc.Get(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String())
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), Actor{ID: other, Role: model.RoleManager}, reqID.String())
	assert.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	repo := &fakeRequisitionRepo{
		FindByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc, _, _ := newTestService(repo)

	_, err := svc.Get(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, uuid.NewString())
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	_, err = svc.Get(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, "not-a-uuid")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

// --- List ---

func TestList_ScopesNonPrivilegedToOwnRows(t *testing.T) {
	var captured repository.RequisitionFilter
	repo := &fakeRequisitionRepo{
		ListFn: func(ctx context.Context, filter repository.RequisitionFilter) ([]repository.RequisitionSummary, error) {
			captured = filter
			return nil, nil
		},
	}
	svc, _, _ := newTestService(repo)
	actorID := uuid.New()

	_, err := svc.List(context.Background(), Actor{ID: actorID, Role: model.RoleUser}, ListRequisitionsFilter{Status: "draft"})
	require.NoError(t, err)
	require.NotNil(t, captured.RequestedBy)
	assert.Equal(t, actorID, *captured.RequestedBy)
	assert.Equal(t, "draft", captured.Status)

	_, err = svc.List(context.Background(), Actor{ID: actorID, Role: model.RoleManager}, ListRequisitionsFilter{})
	require.NoError(t, err)
	assert.Nil(t, captured.RequestedBy)
}

// --- Update ---

func TestUpdate_OwnerDraftOnly(t *testing.T) {
	owner := uuid.New()
	reqID := uuid.New()
	title := "Revised restock"

	makeRepo := func(status string, updated *map[string]interface{}) *fakeRequisitionRepo {
		return &fakeRequisitionRepo{
			FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
				return &model.Requisition{ID: reqID, RequestedBy: owner, Status: status, RequisitionNumber: "REQ-20260901-0002"}, nil
			},
			UpdateFieldsFn: func(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
				*updated = updates
				return nil
			},
		}
	}

	var updates map[string]interface{}
	svc, _, _ := newTestService(makeRepo(model.RequisitionStatusDraft, &updates))
	err := svc.Update(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String(),
		UpdateRequisitionRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Revised restock", updates["title"])
	_, hasStatus := updates["status"]
	assert.False(t, hasStatus, "status must never be writable through Update")

	// Owner cannot edit after submission.
	svc, _, _ = newTestService(makeRepo(model.RequisitionStatusSubmitted, &updates))
	err = svc.Update(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String(),
		UpdateRequisitionRequest{Title: &title})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	// Managers can edit regardless of status.
	svc, _, _ = newTestService(makeRepo(model.RequisitionStatusSubmitted, &updates))
	err = svc.Update(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, reqID.String(),
		UpdateRequisitionRequest{Title: &title})
	assert.NoError(t, err)
}

// --- Submit ---

func TestSubmit(t *testing.T) {
	owner := uuid.New()
	reqID := uuid.New()

	makeRepo := func(status string, casOK bool) *fakeRequisitionRepo {
		return &fakeRequisitionRepo{
			FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
				return &model.Requisition{ID: reqID, RequestedBy: owner, Status: status, RequisitionNumber: "REQ-20260901-0003"}, nil
			},
			UpdateStatusIfFn: func(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error) {
				return casOK, nil
			},
		}
	}

	t.Run("owner submits draft", func(t *testing.T) {
		svc, activity, events := newTestService(makeRepo(model.RequisitionStatusDraft, true))
		err := svc.Submit(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String())
		require.NoError(t, err)
		require.Len(t, events.events, 1)
		assert.Equal(t, "requisition.submitted", events.events[0].Type)
		assert.Equal(t, model.RequisitionStatusSubmitted, events.events[0].Status)
		require.Len(t, activity.entries, 1)
		assert.Equal(t, model.ActivitySubmit, activity.entries[0].Action)
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		svc, _, _ := newTestService(makeRepo(model.RequisitionStatusDraft, true))
		err := svc.Submit(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, reqID.String())
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("double submit conflicts", func(t *testing.T) {
		svc, _, events := newTestService(makeRepo(model.RequisitionStatusSubmitted, false))
		err := svc.Submit(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String())
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
		assert.Empty(t, events.events)
	})

	t.Run("concurrent submit loses the race", func(t *testing.T) {
		// Row read as draft but the guarded update matches zero rows.
		svc, _, _ := newTestService(makeRepo(model.RequisitionStatusDraft, false))
		err := svc.Submit(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String())
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	})
}

// --- Decide ---

func TestDecide_Approve(t *testing.T) {
	reqID := uuid.New()
	approver := uuid.New()

	var (
		capturedUpdates  map[string]interface{}
		itemsApproved    bool
		capturedApproval *model.RequisitionApproval
	)
	repo := &fakeRequisitionRepo{
		FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
			return &model.Requisition{ID: reqID, RequestedBy: uuid.New(), Status: model.RequisitionStatusSubmitted, RequisitionNumber: "REQ-20260901-0004"}, nil
		},
		UpdateStatusIfFn: func(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error) {
			capturedUpdates = updates
			return true, nil
		},
		ApproveItemsFn: func(ctx context.Context, requisitionID uuid.UUID) error {
			itemsApproved = true
			return nil
		},
		AddApprovalFn: func(ctx context.Context, approval *model.RequisitionApproval) error {
			capturedApproval = approval
			return nil
		},
	}
	svc, _, events := newTestService(repo)

	err := svc.Decide(context.Background(), Actor{ID: approver, Role: model.RoleManager}, reqID.String(),
		DecisionRequest{Action: model.DecisionApprove, Comments: "Budget cleared"})
	require.NoError(t, err)

	assert.Equal(t, model.RequisitionStatusApproved, capturedUpdates["status"])
	assert.Equal(t, approver, capturedUpdates["approved_by"])
	assert.NotNil(t, capturedUpdates["approved_date"])
	assert.True(t, itemsApproved, "line items must be approved with the requisition")

	require.NotNil(t, capturedApproval)
	assert.Equal(t, approver, capturedApproval.ApproverID)
	assert.Equal(t, 1, capturedApproval.ApprovalLevel)
	assert.Equal(t, model.RequisitionStatusApproved, capturedApproval.Status)
	assert.Equal(t, "Budget cleared", capturedApproval.Comments)

	require.Len(t, events.events, 1)
	assert.Equal(t, "requisition.approved", events.events[0].Type)
}

func TestDecide_Reject(t *testing.T) {
	reqID := uuid.New()
	approver := uuid.New()

	var capturedUpdates map[string]interface{}
	itemsApproved := false
	repo := &fakeRequisitionRepo{
		FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
			return &model.Requisition{ID: reqID, RequestedBy: uuid.New(), Status: model.RequisitionStatusPendingApproval}, nil
		},
		UpdateStatusIfFn: func(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error) {
			capturedUpdates = updates
			return true, nil
		},
		ApproveItemsFn: func(ctx context.Context, requisitionID uuid.UUID) error {
			itemsApproved = true
			return nil
		},
		AddApprovalFn: func(ctx context.Context, approval *model.RequisitionApproval) error { return nil },
	}
	svc, _, _ := newTestService(repo)

	err := svc.Decide(context.Background(), Actor{ID: approver, Role: model.RoleAdmin}, reqID.String(),
		DecisionRequest{Action: model.DecisionReject, Comments: "Over budget"})
	require.NoError(t, err)

	assert.Equal(t, model.RequisitionStatusRejected, capturedUpdates["status"])
	assert.Equal(t, "Over budget", capturedUpdates["rejection_reason"])
	assert.Nil(t, capturedUpdates["approved_date"], "rejection must not set an approval date")
	assert.False(t, itemsApproved, "rejection must leave line items untouched")
}

func TestDecide_Guards(t *testing.T) {
	reqID := uuid.New()

	t.Run("plain user forbidden", func(t *testing.T) {
		svc, _, _ := newTestService(&fakeRequisitionRepo{})
		err := svc.Decide(context.Background(), Actor{ID: uuid.New(), Role: model.RoleUser}, reqID.String(),
			DecisionRequest{Action: model.DecisionApprove})
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("draft not decidable", func(t *testing.T) {
		repo := &fakeRequisitionRepo{
			FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
				return &model.Requisition{ID: reqID, Status: model.RequisitionStatusDraft}, nil
			},
		}
		svc, _, _ := newTestService(repo)
		err := svc.Decide(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, reqID.String(),
			DecisionRequest{Action: model.DecisionApprove})
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	})

	t.Run("concurrent decision loses the race", func(t *testing.T) {
		repo := &fakeRequisitionRepo{
			FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
				return &model.Requisition{ID: reqID, Status: model.RequisitionStatusSubmitted}, nil
			},
			UpdateStatusIfFn: func(ctx context.Context, id uuid.UUID, allowedFrom []string, updates map[string]interface{}) (bool, error) {
				return false, nil
			},
		}
		svc, _, _ := newTestService(repo)
		err := svc.Decide(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, reqID.String(),
			DecisionRequest{Action: model.DecisionReject})
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	})

	t.Run("invalid action", func(t *testing.T) {
		svc, _, _ := newTestService(&fakeRequisitionRepo{})
		err := svc.Decide(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, reqID.String(),
			DecisionRequest{Action: "escalate"})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}

// --- Delete ---

func TestDelete(t *testing.T) {
	owner := uuid.New()
	reqID := uuid.New()

	makeRepo := func(status string, deleted *bool) *fakeRequisitionRepo {
		return &fakeRequisitionRepo{
			FindForUpdateFn: func(ctx context.Context, id uuid.UUID) (*model.Requisition, error) {
				return &model.Requisition{ID: reqID, RequestedBy: owner, Status: status}, nil
			},
			DeleteFn: func(ctx context.Context, id uuid.UUID) error {
				*deleted = true
				return nil
			},
		}
	}

	var deleted bool
	svc, _, _ := newTestService(makeRepo(model.RequisitionStatusDraft, &deleted))
	err := svc.Delete(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String())
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted = false
	svc, _, _ = newTestService(makeRepo(model.RequisitionStatusSubmitted, &deleted))
	err = svc.Delete(context.Background(), Actor{ID: owner, Role: model.RoleUser}, reqID.String())
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	assert.False(t, deleted)

	// Admins may delete regardless of owner and status.
	svc, _, _ = newTestService(makeRepo(model.RequisitionStatusApproved, &deleted))
	err = svc.Delete(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, reqID.String())
	require.NoError(t, err)
	assert.True(t, deleted)

	// Managers without ownership may not.
	svc, _, _ = newTestService(makeRepo(model.RequisitionStatusDraft, &deleted))
	err = svc.Delete(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, reqID.String())
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

// --- Dashboard ---

func TestDashboard(t *testing.T) {
	actorID := uuid.New()
	repo := &fakeRequisitionRepo{
		DashboardStatsFn: func(ctx context.Context, userID uuid.UUID) (repository.DashboardStats, error) {
			assert.Equal(t, actorID, userID)
			return repository.DashboardStats{Total: 12, Pending: 3, Approved: 7, Rejected: 2, Mine: 4}, nil
		},
	}
	svc, _, _ := newTestService(repo)

	stats, err := svc.Dashboard(context.Background(), Actor{ID: actorID, Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Total)
	assert.Equal(t, int64(4), stats.Mine)
}
