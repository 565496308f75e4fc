package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
)

func newSummaryFixture(t *testing.T) (*SummaryService, *TransactionService, *RecurringService, *core.User) {
	t.Helper()
	repo := newTestRepo(t)
	user := newTestUser(t, repo)
	return NewSummaryService(repo, NewUserService(repo)),
		NewTransactionService(repo, nil),
		NewRecurringService(repo, nil),
		user
}

func createTx(t *testing.T, svc *TransactionService, user *core.User, amt, date string, cat core.Category, status core.Status) *core.Transaction {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	tr, err := svc.Create(context.Background(), user, TransactionRequest{
		Amount:   amount(t, amt),
		Date:     d,
		Category: cat,
		Status:   status,
		Currency: core.EUR,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tr
}

func TestSummaryByYear_RecurringSeriesScenario(t *testing.T) {
	summaries, _, recurring, user := newSummaryFixture(t)
	ctx := context.Background()

	_, err := recurring.Create(ctx, user, rentRequest(t, core.Schedule{
		DayOfMonth: 1,
		StartMonth: 1, StartYear: 2024,
		EndMonth: 12, EndYear: 2024,
	}))
	if err != nil {
		t.Fatalf("create series: %v", err)
	}

	summary, err := summaries.ByYear(ctx, user, 2024)
	if err != nil {
		t.Fatalf("ByYear: %v", err)
	}

	aggs, ok := summary.Categories[core.CategoryRent]
	if !ok {
		t.Fatal("RENT category missing from summary")
	}
	if len(aggs) != 1 {
		t.Fatalf("RENT has %d status buckets, want 1", len(aggs))
	}
	if aggs[0].Count != 12 {
		t.Errorf("RENT count = %d, want 12", aggs[0].Count)
	}
	if !aggs[0].TotalAmount.Equal(amount(t, "1200")) {
		t.Errorf("RENT total = %s, want 1200", aggs[0].TotalAmount)
	}
	if aggs[0].Status != core.StatusOutgoing {
		t.Errorf("RENT bucket status = %s, want OUTGOING", aggs[0].Status)
	}
	if !summary.TotalOutgoings.Equal(amount(t, "1200")) {
		t.Errorf("TotalOutgoings = %s, want 1200", summary.TotalOutgoings)
	}
	if !summary.TotalBudget.Equal(amount(t, "-1200")) {
		t.Errorf("TotalBudget = %s, want -1200", summary.TotalBudget)
	}
}

func TestSummary_TotalsPartitionOnIncomeStatus(t *testing.T) {
	summaries, transactions, _, user := newSummaryFixture(t)
	ctx := context.Background()

	createTx(t, transactions, user, "3000", "2024-03-01", core.CategorySalary, core.StatusIncome)
	createTx(t, transactions, user, "150.25", "2024-03-10", core.CategoryShopping, core.StatusOutgoing)
	createTx(t, transactions, user, "800", "2024-03-15", core.CategoryRent, core.StatusOutgoing)

	summary, err := summaries.ByMonth(ctx, user, 2024, 3)
	if err != nil {
		t.Fatalf("ByMonth: %v", err)
	}

	if !summary.TotalIncome.Equal(amount(t, "3000")) {
		t.Errorf("TotalIncome = %s, want 3000", summary.TotalIncome)
	}
	// Everything that is not INCOME counts as an outgoing.
	if !summary.TotalOutgoings.Equal(amount(t, "950.25")) {
		t.Errorf("TotalOutgoings = %s, want 950.25", summary.TotalOutgoings)
	}
	if !summary.TotalBudget.Equal(amount(t, "2049.75")) {
		t.Errorf("TotalBudget = %s, want 2049.75", summary.TotalBudget)
	}
	if len(summary.Categories) != 3 {
		t.Errorf("got %d categories, want 3", len(summary.Categories))
	}
}

func TestSummary_MixedStatusesWithinCategory(t *testing.T) {
	summaries, transactions, _, user := newSummaryFixture(t)
	ctx := context.Background()

	// INVESTMENT carries both dividends coming in and purchases going out.
	createTx(t, transactions, user, "200", "2024-06-03", core.CategoryInvestment, core.StatusIncome)
	createTx(t, transactions, user, "50", "2024-06-18", core.CategoryInvestment, core.StatusIncome)
	createTx(t, transactions, user, "400", "2024-06-20", core.CategoryInvestment, core.StatusOutgoing)

	summary, err := summaries.ByMonth(ctx, user, 2024, 6)
	if err != nil {
		t.Fatalf("ByMonth: %v", err)
	}

	aggs, ok := summary.Categories[core.CategoryInvestment]
	if !ok {
		t.Fatal("INVESTMENT category missing from summary")
	}
	if len(aggs) != 2 {
		t.Fatalf("INVESTMENT has %d status buckets, want 2", len(aggs))
	}
	byStatus := make(map[core.Status]core.StatusAggregate, len(aggs))
	for _, a := range aggs {
		byStatus[a.Status] = a
	}
	income, ok := byStatus[core.StatusIncome]
	if !ok {
		t.Fatal("INCOME bucket missing for INVESTMENT")
	}
	if income.Count != 2 || !income.TotalAmount.Equal(amount(t, "250")) {
		t.Errorf("INCOME bucket = {count %d, total %s}, want {2, 250}", income.Count, income.TotalAmount)
	}
	outgoing, ok := byStatus[core.StatusOutgoing]
	if !ok {
		t.Fatal("OUTGOING bucket missing for INVESTMENT")
	}
	if outgoing.Count != 1 || !outgoing.TotalAmount.Equal(amount(t, "400")) {
		t.Errorf("OUTGOING bucket = {count %d, total %s}, want {1, 400}", outgoing.Count, outgoing.TotalAmount)
	}

	if !summary.TotalIncome.Equal(amount(t, "250")) {
		t.Errorf("TotalIncome = %s, want 250", summary.TotalIncome)
	}
	if !summary.TotalOutgoings.Equal(amount(t, "400")) {
		t.Errorf("TotalOutgoings = %s, want 400", summary.TotalOutgoings)
	}
	if !summary.TotalBudget.Equal(amount(t, "-150")) {
		t.Errorf("TotalBudget = %s, want -150", summary.TotalBudget)
	}
}

func TestSummaryByMonth_WindowEdges(t *testing.T) {
	summaries, transactions, _, user := newSummaryFixture(t)
	ctx := context.Background()

	createTx(t, transactions, user, "10", "2024-02-01", core.CategoryOther, core.StatusOutgoing)
	createTx(t, transactions, user, "20", "2024-02-29", core.CategoryOther, core.StatusOutgoing) // leap day
	createTx(t, transactions, user, "40", "2024-03-01", core.CategoryOther, core.StatusOutgoing)

	summary, err := summaries.ByMonth(ctx, user, 2024, 2)
	if err != nil {
		t.Fatalf("ByMonth: %v", err)
	}
	if !summary.TotalOutgoings.Equal(amount(t, "30")) {
		t.Errorf("February outgoings = %s, want 30", summary.TotalOutgoings)
	}
}

func TestSummaryByMonth_InvalidMonth(t *testing.T) {
	summaries, _, _, user := newSummaryFixture(t)

	for _, month := range []int{0, 13, -1} {
		if _, err := summaries.ByMonth(context.Background(), user, 2024, month); !errors.Is(err, core.ErrInvalidMonth) {
			t.Errorf("month %d: err = %v, want ErrInvalidMonth", month, err)
		}
	}
}

func TestSummary_EmptyPeriod(t *testing.T) {
	summaries, _, _, user := newSummaryFixture(t)

	summary, err := summaries.ByMonth(context.Background(), user, 2031, 6)
	if err != nil {
		t.Fatalf("ByMonth: %v", err)
	}
	if !summary.TotalIncome.IsZero() || !summary.TotalOutgoings.IsZero() || !summary.TotalBudget.IsZero() {
		t.Errorf("totals not zero for empty period: %+v", summary)
	}
	if len(summary.Categories) != 0 {
		t.Errorf("got %d categories for empty period, want 0", len(summary.Categories))
	}
}

func TestFindByFilters(t *testing.T) {
	summaries, transactions, _, user := newSummaryFixture(t)
	ctx := context.Background()

	createTx(t, transactions, user, "3000", "2024-03-01", core.CategorySalary, core.StatusIncome)
	createTx(t, transactions, user, "150", "2024-03-10", core.CategoryShopping, core.StatusOutgoing)
	createTx(t, transactions, user, "90", "2024-04-02", core.CategoryShopping, core.StatusOutgoing)
	createTx(t, transactions, user, "500", "2023-12-20", core.CategoryTravel, core.StatusOutgoing)

	year := 2024
	march := 3
	shopping := core.CategoryShopping
	outgoing := core.StatusOutgoing
	marchTenth := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filters TransactionFilters
		want    int
	}{
		{"no filters covers everything up to now", TransactionFilters{}, 4},
		{"year window", TransactionFilters{Year: &year}, 3},
		{"year and month window", TransactionFilters{Year: &year, Month: &march}, 2},
		{"category across open window", TransactionFilters{Category: &shopping}, 2},
		{"category within month", TransactionFilters{Year: &year, Month: &march, Category: &shopping}, 1},
		{"status within year", TransactionFilters{Year: &year, Status: &outgoing}, 2},
		{"exact date", TransactionFilters{Date: &marchTenth}, 1},
		{"all filters combined", TransactionFilters{
			Year: &year, Month: &march, Category: &shopping, Status: &outgoing, Date: &marchTenth,
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := summaries.FindByFilters(ctx, user, tt.filters)
			if err != nil {
				t.Fatalf("FindByFilters: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d transactions, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFindByFilters_InvalidMonth(t *testing.T) {
	summaries, _, _, user := newSummaryFixture(t)

	year, month := 2024, 13
	_, err := summaries.FindByFilters(context.Background(), user, TransactionFilters{Year: &year, Month: &month})
	if !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("err = %v, want ErrInvalidMonth", err)
	}
}

func TestFindByFilters_MonthWithoutYearIgnored(t *testing.T) {
	summaries, transactions, _, user := newSummaryFixture(t)
	ctx := context.Background()

	createTx(t, transactions, user, "10", "2023-05-05", core.CategoryOther, core.StatusOutgoing)
	createTx(t, transactions, user, "10", "2024-05-05", core.CategoryOther, core.StatusOutgoing)

	// A month with no year cannot pick a window, so the open window applies.
	may := 5
	got, err := summaries.FindByFilters(ctx, user, TransactionFilters{Month: &may})
	if err != nil {
		t.Fatalf("FindByFilters: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
}
