package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the sqlite-backed store for users, sessions, transactions,
// savings and saving goals. All queries owned by a user are scoped to that
// user; series mutations run through WithTx so a crash mid-regeneration never
// leaves a series half-old, half-new.
type Repository struct {
	db *sql.DB
	q  querier
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, q: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn against a repository bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithTx(ctx context.Context, fn func(*Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		// Already inside a transaction; sqlite has no nesting.
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Repository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	var fav any
	if u.FavoriteCurrency != "" {
		fav = string(u.FavoriteCurrency)
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, favorite_currency)
		VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, fav)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, favorite_currency
		FROM users WHERE username = ?`, username))
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, favorite_currency
		FROM users WHERE id = ?`, id))
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n); err != nil {
		return false, fmt.Errorf("count username: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return false, fmt.Errorf("count email: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) SetFavoriteCurrency(ctx context.Context, userID int64, c core.Currency) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET favorite_currency = ? WHERE id = ?`, string(c), userID)
	if err != nil {
		return fmt.Errorf("set favorite currency: %w", err)
	}
	return nil
}

func (r *Repository) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	var fav sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &fav)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if fav.Valid {
		u.FavoriteCurrency = core.Currency(fav.String)
	}
	return &u, nil
}

// --- tokens ---

func (r *Repository) InsertToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// UserByToken resolves a session token to its user. Expired tokens resolve to
// core.ErrNotFound even before the sweeper removes them.
func (r *Repository) UserByToken(ctx context.Context, token string, now time.Time) (*core.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.favorite_currency
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ? AND t.expires_at > ?`, token, now.UTC()))
}

func (r *Repository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired tokens rows affected: %w", err)
	}
	return n, nil
}

// --- transactions ---

const transactionColumns = `id, user_id, amount, currency, date, category, status, description,
	type, day_of_month, start_month, start_year, end_month, end_year, series_id, updated_at`

func (r *Repository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions
			(user_id, amount, currency, date, category, status, description, type,
			 day_of_month, start_month, start_year, end_month, end_year, series_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Amount.String(), string(t.Currency), t.Date.Format(dateLayout),
		string(t.Category), string(t.Status), t.Description, string(t.Type),
		nullInt(t.Schedule.DayOfMonth), nullInt(t.Schedule.StartMonth), nullInt(t.Schedule.StartYear),
		nullInt(t.Schedule.EndMonth), nullInt(t.Schedule.EndYear), nullStr(t.SeriesID), t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	return nil
}

// GetTransaction fetches one transaction scoped to its owner.
func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return one(rows)
}

// GetTransactionAny fetches a transaction without owner scoping. Used by the
// export worker, which processes rows across all users.
func (r *Repository) GetTransactionAny(ctx context.Context, id int64) (*core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return one(rows)
}

func (r *Repository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, currency = ?, date = ?, category = ?, status = ?, description = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		t.Amount.String(), string(t.Currency), t.Date.Format(dateLayout),
		string(t.Category), string(t.Status), t.Description, time.Now().UTC(),
		t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) FindBySeriesID(ctx context.Context, seriesID string) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE series_id = ? ORDER BY date`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("find by series id: %w", err)
	}
	return all(rows)
}

func (r *Repository) DeleteBySeriesID(ctx context.Context, seriesID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE series_id = ?`, seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete by series id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("series delete rows affected: %w", err)
	}
	return n, nil
}

// UpdateSeriesContent patches the content fields of every member of a series
// in place, leaving each row's date and the series id untouched.
func (r *Repository) UpdateSeriesContent(ctx context.Context, seriesID string, t core.Transaction) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, currency = ?, category = ?, status = ?, description = ?, updated_at = ?
		WHERE series_id = ?`,
		t.Amount.String(), string(t.Currency), string(t.Category), string(t.Status),
		t.Description, time.Now().UTC(), seriesID)
	if err != nil {
		return 0, fmt.Errorf("update series content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("series update rows affected: %w", err)
	}
	return n, nil
}

func (r *Repository) FindByUserAndDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("find by date range: %w", err)
	}
	return all(rows)
}

func (r *Repository) FindByUserAndType(ctx context.Context, userID int64, typ core.TransactionType) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND type = ?`,
		userID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("find by type: %w", err)
	}
	return all(rows)
}

// FindUnsyncedTransactions returns up to limit transactions never exported,
// oldest first. The worker's periodic sweep uses it to catch rows whose sync
// message was lost.
func (r *Repository) FindUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE synced_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("find unsynced: %w", err)
	}
	return all(rows)
}

func (r *Repository) MarkTransactionSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE transactions SET synced_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func one(rows *sql.Rows) (*core.Transaction, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		return nil, core.ErrNotFound
	}
	t, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func all(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t                          core.Transaction
		amount, date               string
		currency, category, status string
		typ                        string
		day, sm, sy, em, ey        sql.NullInt64
		series                     sql.NullString
	)
	err := rows.Scan(&t.ID, &t.UserID, &amount, &currency, &date, &category, &status,
		&t.Description, &typ, &day, &sm, &sy, &em, &ey, &series, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	t.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}

	t.Currency = core.Currency(currency)
	t.Category = core.Category(category)
	t.Status = core.Status(status)
	t.Type = core.TransactionType(typ)
	t.Schedule = core.Schedule{
		DayOfMonth: int(day.Int64),
		StartMonth: int(sm.Int64),
		StartYear:  int(sy.Int64),
		EndMonth:   int(em.Int64),
		EndYear:    int(ey.Int64),
	}
	if series.Valid {
		t.SeriesID = series.String
	}
	return t, nil
}

// --- savings ---

func (r *Repository) CreateSavings(ctx context.Context, s *core.Savings) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO savings (user_id, amount, currency) VALUES (?, ?, ?)`,
		s.UserID, s.Amount.String(), string(s.Currency))
	if err != nil {
		return fmt.Errorf("insert savings: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("savings insert id: %w", err)
	}
	return nil
}

func (r *Repository) GetSavings(ctx context.Context, userID, id int64) (*core.Savings, error) {
	var s core.Savings
	var amount string
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, amount, currency FROM savings WHERE user_id = ? AND id = ?`,
		userID, id).Scan(&s.ID, &s.UserID, &amount, &s.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get savings: %w", err)
	}
	s.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	return &s, nil
}

func (r *Repository) ListSavings(ctx context.Context, userID int64) ([]core.Savings, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, amount, currency FROM savings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var out []core.Savings
	for rows.Next() {
		var s core.Savings
		var amount string
		if err := rows.Scan(&s.ID, &s.UserID, &amount, &s.Currency); err != nil {
			return nil, fmt.Errorf("scan savings: %w", err)
		}
		s.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate savings: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateSavings(ctx context.Context, s *core.Savings) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE savings SET amount = ?, currency = ? WHERE user_id = ? AND id = ?`,
		s.Amount.String(), string(s.Currency), s.UserID, s.ID)
	if err != nil {
		return fmt.Errorf("update savings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("savings rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSavings(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM savings WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete savings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("savings rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- saving goals ---

func (r *Repository) CreateSavingGoal(ctx context.Context, g *core.SavingGoal) error {
	var target any
	if !g.TargetDate.IsZero() {
		target = g.TargetDate.Format(dateLayout)
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO saving_goals
			(user_id, name, description, goal_amount, initial_amount, currency, start_date, target_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.Description, g.GoalAmount.String(), g.InitialAmount.String(),
		string(g.Currency), g.StartDate.Format(dateLayout), target, string(g.Status))
	if err != nil {
		return fmt.Errorf("insert saving goal: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("saving goal insert id: %w", err)
	}
	return nil
}

func (r *Repository) GetSavingGoal(ctx context.Context, userID, id int64) (*core.SavingGoal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, name, description, goal_amount, initial_amount, currency, start_date, target_date, status
		FROM saving_goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get saving goal: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("scan saving goal: %w", err)
		}
		return nil, core.ErrNotFound
	}
	g, err := scanSavingGoal(rows)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) ListSavingGoals(ctx context.Context, userID int64) ([]core.SavingGoal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, name, description, goal_amount, initial_amount, currency, start_date, target_date, status
		FROM saving_goals WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saving goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingGoal
	for rows.Next() {
		g, err := scanSavingGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saving goals: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateSavingGoalStatus(ctx context.Context, userID, id int64, status core.GoalStatus) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE saving_goals SET status = ? WHERE user_id = ? AND id = ?`,
		string(status), userID, id)
	if err != nil {
		return fmt.Errorf("update saving goal status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving goal rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSavingGoal(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM saving_goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete saving goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving goal rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanSavingGoal(rows *sql.Rows) (core.SavingGoal, error) {
	var (
		g                     core.SavingGoal
		goalAmount, initial   string
		startDate             string
		targetDate            sql.NullString
	)
	err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &goalAmount, &initial,
		&g.Currency, &startDate, &targetDate, &g.Status)
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("scan saving goal: %w", err)
	}
	g.GoalAmount, err = decimal.NewFromString(goalAmount)
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("parse stored goal amount %q: %w", goalAmount, err)
	}
	g.InitialAmount, err = decimal.NewFromString(initial)
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("parse stored initial amount %q: %w", initial, err)
	}
	g.StartDate, err = time.Parse(dateLayout, startDate)
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("parse stored start date %q: %w", startDate, err)
	}
	if targetDate.Valid {
		g.TargetDate, err = time.Parse(dateLayout, targetDate.String)
		if err != nil {
			return core.SavingGoal{}, fmt.Errorf("parse stored target date %q: %w", targetDate.String, err)
		}
	}
	return g, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
