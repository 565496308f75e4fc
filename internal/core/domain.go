package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OneTime   TransactionType = "ONE_TIME"
	Recurring TransactionType = "RECURRING"
)

const (
	StatusIncome   Status = "INCOME"
	StatusOutgoing Status = "OUTGOING"
)

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	TRY Currency = "TRY"
)

const (
	CategorySalary     Category = "SALARY"
	CategoryRent       Category = "RENT"
	CategoryShopping   Category = "SHOPPING"
	CategoryTravel     Category = "TRAVEL"
	CategoryEducation  Category = "EDUCATION"
	CategoryInvestment Category = "INVESTMENT"
	CategoryOther      Category = "OTHER"
)

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalCancelled GoalStatus = "CANCELLED"
)

type (
	TransactionType string
	Status          string
	Currency        string
	Category        string
	GoalStatus      string

	User struct {
		ID               int64
		Username         string
		Email            string
		PasswordHash     string
		FavoriteCurrency Currency // empty when unset
	}

	// Schedule is the shape of a recurrence: the day-of-month anchor and the
	// inclusive start/end periods, month granularity.
	Schedule struct {
		DayOfMonth int
		StartMonth int
		StartYear  int
		EndMonth   int
		EndYear    int
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Amount      decimal.Decimal
		Currency    Currency
		Date        time.Time
		Category    Category
		Status      Status
		Description string
		Type        TransactionType

		// Recurrence metadata, meaningful only when Type == Recurring.
		Schedule Schedule
		SeriesID string // shared by every instance of one recurrence; empty for one-time rows

		UpdatedAt time.Time
	}

	Savings struct {
		ID       int64
		UserID   int64
		Amount   decimal.Decimal
		Currency Currency
	}

	SavingGoal struct {
		ID            int64
		UserID        int64
		Name          string
		Description   string
		GoalAmount    decimal.Decimal
		InitialAmount decimal.Decimal
		Currency      Currency
		StartDate     time.Time
		TargetDate    time.Time
		Status        GoalStatus
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotRecurring    = errors.New("transaction is not part of a recurring series")
	ErrUnauthenticated = errors.New("no authenticated user")
	ErrUpstream        = errors.New("upstream service failed")

	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrInvalidDay         = errors.New("day of month must be between 1 and 31")
	ErrInvertedRange      = errors.New("end period is before start period")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrEmptyName          = errors.New("empty name")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// IsValidation reports whether err is one of the request validation errors,
// as opposed to a not-found, state or infrastructure failure.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrInvalidMonth, ErrInvalidDay, ErrInvertedRange, ErrInvalidAmount,
		ErrInvalidCategory, ErrInvalidStatus, ErrInvalidCurrency,
		ErrEmptyName, ErrDescriptionTooLong,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func (c Category) Validate() error {
	switch c {
	case CategorySalary, CategoryRent, CategoryShopping, CategoryTravel,
		CategoryEducation, CategoryInvestment, CategoryOther:
		return nil
	}
	return ErrInvalidCategory
}

func (s Status) Validate() error {
	switch s {
	case StatusIncome, StatusOutgoing:
		return nil
	}
	return ErrInvalidStatus
}

func (c Currency) Validate() error {
	switch c {
	case USD, EUR, GBP, TRY:
		return nil
	}
	return ErrInvalidCurrency
}

// Validate checks the recurrence shape: months in range, day anchor in range,
// start period not after end period.
func (s Schedule) Validate() error {
	if s.StartMonth < 1 || s.StartMonth > 12 {
		return ErrInvalidMonth
	}
	if s.EndMonth < 1 || s.EndMonth > 12 {
		return ErrInvalidMonth
	}
	if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if s.EndYear < s.StartYear || (s.EndYear == s.StartYear && s.EndMonth < s.StartMonth) {
		return ErrInvertedRange
	}
	return nil
}

// Months returns the inclusive month count the schedule spans.
func (s Schedule) Months() int {
	return (s.EndYear-s.StartYear)*12 + (s.EndMonth - s.StartMonth) + 1
}

// Equal reports whether two schedules describe the same recurrence shape.
// A recurring update whose schedule is unequal regenerates the whole series.
func (s Schedule) Equal(o Schedule) bool {
	return s.DayOfMonth == o.DayOfMonth &&
		s.StartMonth == o.StartMonth && s.StartYear == o.StartYear &&
		s.EndMonth == o.EndMonth && s.EndYear == o.EndYear
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	if err := t.Status.Validate(); err != nil {
		return err
	}
	if err := t.Currency.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (s GoalStatus) Validate() error {
	switch s {
	case GoalActive, GoalCompleted, GoalCancelled:
		return nil
	}
	return ErrInvalidStatus
}

func (s Savings) Validate() error {
	if s.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return s.Currency.Validate()
}

func (g SavingGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.GoalAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.InitialAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := g.Currency.Validate(); err != nil {
		return err
	}
	return nil
}
