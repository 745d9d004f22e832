package service

import (
	"context"
	"log"

	"factoryms/internal/model"
	"factoryms/internal/repository"
)

// ActivityRecorder is the fire-and-forget audit sink mutating operations
// write to. Failures are logged and swallowed; they never fail the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, entry model.ActivityLog)
}

type ActivityLogResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Summary   string `json:"summary"`
	Detail    string `json:"detail"`
	IPAddress string `json:"ip_address"`
	CreatedAt string `json:"created_at"`
}

type ActivityService interface {
	ActivityRecorder
	GetActivityLogs(ctx context.Context, page, limit int) ([]ActivityLogResponse, int64, error)
	GetRecentActivity(ctx context.Context, filter repository.ActivityFilter) ([]ActivityLogResponse, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

func (s *activityService) Record(ctx context.Context, entry model.ActivityLog) {
	if err := s.repo.Log(ctx, &entry); err != nil {
		log.Printf("activity log write failed (action=%s): %v", entry.Action, err)
	}
}

// GetActivityLogs retrieves paginated activity records with users pre-loaded
func (s *activityService) GetActivityLogs(ctx context.Context, page, limit int) ([]ActivityLogResponse, int64, error) {
	logs, total, err := s.repo.ListPaged(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toActivityResponse(l))
	}
	return res, total, nil
}

// GetRecentActivity returns the filtered activity trail for reporting,
// newest first, without pagination bookkeeping.
func (s *activityService) GetRecentActivity(ctx context.Context, filter repository.ActivityFilter) ([]ActivityLogResponse, error) {
	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := make([]ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toActivityResponse(l))
	}
	return res, nil
}

func toActivityResponse(l model.ActivityLog) ActivityLogResponse {
	username := "System"
	userID := ""
	if l.User != nil {
		username = l.User.Username
	}
	if l.UserID != nil {
		userID = l.UserID.String()
	}

	return ActivityLogResponse{
		ID:        l.ID.String(),
		UserID:    userID,
		Username:  username,
		Action:    l.Action,
		Summary:   l.Summary,
		Detail:    l.Detail,
		IPAddress: l.IPAddress,
		CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
