package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// SavingsService covers savings pots and saving goals.
type SavingsService struct {
	repo *storage.Repository

	now func() time.Time
}

func NewSavingsService(repo *storage.Repository) *SavingsService {
	return &SavingsService{repo: repo, now: time.Now}
}

func (s *SavingsService) Create(ctx context.Context, user *core.User, sv core.Savings) (*core.Savings, error) {
	sv.UserID = user.ID
	sv.Currency = effectiveCurrency(user, sv.Currency)
	if err := sv.Validate(); err != nil {
		return nil, fmt.Errorf("validate savings: %w", err)
	}
	if err := s.repo.CreateSavings(ctx, &sv); err != nil {
		return nil, fmt.Errorf("persist savings: %w", err)
	}
	slog.InfoContext(ctx, "Savings created", "user_id", user.ID, "savings_id", sv.ID)
	return &sv, nil
}

func (s *SavingsService) Get(ctx context.Context, user *core.User, id int64) (*core.Savings, error) {
	return s.repo.GetSavings(ctx, user.ID, id)
}

func (s *SavingsService) List(ctx context.Context, user *core.User) ([]core.Savings, error) {
	return s.repo.ListSavings(ctx, user.ID)
}

func (s *SavingsService) Update(ctx context.Context, user *core.User, sv core.Savings) (*core.Savings, error) {
	sv.UserID = user.ID
	if err := sv.Validate(); err != nil {
		return nil, fmt.Errorf("validate savings: %w", err)
	}
	if err := s.repo.UpdateSavings(ctx, &sv); err != nil {
		return nil, fmt.Errorf("update savings %d: %w", sv.ID, err)
	}
	return &sv, nil
}

func (s *SavingsService) Delete(ctx context.Context, user *core.User, id int64) error {
	return s.repo.DeleteSavings(ctx, user.ID, id)
}

// CreateGoal records a saving goal. A fresh goal starts ACTIVE, and its start
// date defaults to today when unset.
func (s *SavingsService) CreateGoal(ctx context.Context, user *core.User, g core.SavingGoal) (*core.SavingGoal, error) {
	g.UserID = user.ID
	g.Currency = effectiveCurrency(user, g.Currency)
	g.Status = core.GoalActive
	if g.StartDate.IsZero() {
		g.StartDate = s.now()
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate goal: %w", err)
	}
	if err := s.repo.CreateSavingGoal(ctx, &g); err != nil {
		return nil, fmt.Errorf("persist goal: %w", err)
	}
	slog.InfoContext(ctx, "Saving goal created", "user_id", user.ID, "goal_id", g.ID, "name", g.Name)
	return &g, nil
}

func (s *SavingsService) GetGoal(ctx context.Context, user *core.User, id int64) (*core.SavingGoal, error) {
	return s.repo.GetSavingGoal(ctx, user.ID, id)
}

func (s *SavingsService) ListGoals(ctx context.Context, user *core.User) ([]core.SavingGoal, error) {
	return s.repo.ListSavingGoals(ctx, user.ID)
}

// SetGoalStatus moves a goal between ACTIVE, COMPLETED and CANCELLED.
func (s *SavingsService) SetGoalStatus(ctx context.Context, user *core.User, id int64, status core.GoalStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateSavingGoalStatus(ctx, user.ID, id, status); err != nil {
		return fmt.Errorf("update goal %d status: %w", id, err)
	}
	slog.InfoContext(ctx, "Saving goal status changed", "user_id", user.ID, "goal_id", id, "status", status)
	return nil
}

func (s *SavingsService) DeleteGoal(ctx context.Context, user *core.User, id int64) error {
	return s.repo.DeleteSavingGoal(ctx, user.ID, id)
}
