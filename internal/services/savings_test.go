package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
)

func TestSavingGoal_CreateDefaults(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo)
	svc := NewSavingsService(repo)
	svc.now = func() time.Time { return time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC) }

	goal, err := svc.CreateGoal(context.Background(), user, core.SavingGoal{
		Name:          "emergency fund",
		GoalAmount:    amount(t, "5000"),
		InitialAmount: amount(t, "250"),
		Currency:      core.EUR,
		TargetDate:    time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if goal.Status != core.GoalActive {
		t.Errorf("status = %s, want ACTIVE", goal.Status)
	}
	if got := goal.StartDate.Format("2006-01-02"); got != "2024-08-01" {
		t.Errorf("start date = %s, want 2024-08-01", got)
	}
}

func TestSavingGoal_StatusTransitions(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo)
	svc := NewSavingsService(repo)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, user, core.SavingGoal{
		Name:       "holiday",
		GoalAmount: amount(t, "1200"),
		Currency:   core.EUR,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if err := svc.SetGoalStatus(ctx, user, goal.ID, core.GoalCompleted); err != nil {
		t.Fatalf("SetGoalStatus: %v", err)
	}
	got, err := svc.GetGoal(ctx, user, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if got.Status != core.GoalCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}

	if err := svc.SetGoalStatus(ctx, user, goal.ID, "PAUSED"); !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("bad status: err = %v, want ErrInvalidStatus", err)
	}
}

func TestSavingGoal_Validation(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo)
	svc := NewSavingsService(repo)
	ctx := context.Background()

	_, err := svc.CreateGoal(ctx, user, core.SavingGoal{
		Name:       "   ",
		GoalAmount: amount(t, "100"),
		Currency:   core.EUR,
	})
	if !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("blank name: err = %v, want ErrEmptyName", err)
	}

	_, err = svc.CreateGoal(ctx, user, core.SavingGoal{
		Name:       "zero goal",
		GoalAmount: amount(t, "0"),
		Currency:   core.EUR,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
}

func TestSavings_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	user := newTestUser(t, repo)
	svc := NewSavingsService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, user, core.Savings{
		Amount:   amount(t, "750"),
		Currency: core.EUR,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Amount = amount(t, "900")
	if _, err := svc.Update(ctx, user, *created); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list, err := svc.List(ctx, user)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || !list[0].Amount.Equal(amount(t, "900")) {
		t.Fatalf("list = %+v, want one entry of 900", list)
	}

	if err := svc.Delete(ctx, user, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, user, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("after delete: err = %v, want ErrNotFound", err)
	}
}
