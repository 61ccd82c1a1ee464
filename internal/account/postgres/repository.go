// Package postgres provides PostgreSQL implementation of the account repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bissquit/hotel-admin/internal/account"
	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the account.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const accountColumns = `id, login_name, password, nickname, phone, email, status, registered_at`

func scanAccount(row pgx.Row, a *domain.Account) error {
	return row.Scan(
		&a.ID,
		&a.LoginName,
		&a.Password,
		&a.Nickname,
		&a.Phone,
		&a.Email,
		&a.Status,
		&a.RegisteredAt,
	)
}

// GetAccountByLoginName retrieves an account and its roles by login name.
func (r *Repository) GetAccountByLoginName(ctx context.Context, loginName string) (*domain.Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE login_name = $1`, loginName)
}

// GetAccountByID retrieves an account and its roles by id.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *Repository) getAccount(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var a domain.Account
	if err := scanAccount(r.db.QueryRow(ctx, query, arg), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	roles, err := r.accountRoles(ctx, []int64{a.ID})
	if err != nil {
		return nil, err
	}
	a.Roles = roles[a.ID]
	if a.Roles == nil {
		a.Roles = make([]domain.Role, 0)
	}

	return &a, nil
}

// CreateAccount inserts the account and grants it roleID in one transaction.
func (r *Repository) CreateAccount(ctx context.Context, a *domain.Account, roleID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO accounts (login_name, password, nickname, phone, email, status, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		a.LoginName,
		a.Password,
		a.Nickname,
		a.Phone,
		a.Email,
		a.Status,
		a.RegisteredAt,
	).Scan(&a.ID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return account.ErrLoginNameExists
		}
		return fmt.Errorf("insert account: %w", err)
	}

	var role domain.Role
	err = tx.QueryRow(ctx, `
		WITH granted AS (
			INSERT INTO account_roles (account_id, role_id) VALUES ($1, $2)
			RETURNING role_id
		)
		SELECT r.id, r.code, r.name FROM roles r JOIN granted g ON g.role_id = r.id
	`, a.ID, roleID).Scan(&role.ID, &role.Code, &role.Name)
	if err != nil {
		return fmt.Errorf("grant default role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	a.Roles = []domain.Role{role}
	return nil
}

// CountAccounts counts accounts registered inside the filter's time range.
func (r *Repository) CountAccounts(ctx context.Context, filter account.CountFilter) (int, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE TRUE`
	var args []any

	if filter.RegisteredFrom != nil {
		args = append(args, *filter.RegisteredFrom)
		query += ` AND registered_at >= $` + strconv.Itoa(len(args))
	}
	if filter.RegisteredTo != nil {
		args = append(args, *filter.RegisteredTo)
		query += ` AND registered_at <= $` + strconv.Itoa(len(args))
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

// ListAccounts returns one page of accounts ordered by id and the total match count.
func (r *Repository) ListAccounts(ctx context.Context, filter account.ListFilter) ([]domain.Account, int, error) {
	var conditions []string
	var args []any

	if filter.LoginName != "" {
		args = append(args, postgres.ContainsPattern(filter.LoginName))
		conditions = append(conditions, `login_name ILIKE $`+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, `status = $`+strconv.Itoa(len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts` + where +
		` ORDER BY id LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var a domain.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}

	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	roles, err := r.accountRoles(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range accounts {
		accounts[i].Roles = roles[accounts[i].ID]
		if accounts[i].Roles == nil {
			accounts[i].Roles = make([]domain.Role, 0)
		}
	}

	return accounts, total, nil
}

// UpdateAccountStatus sets the status of an account.
func (r *Repository) UpdateAccountStatus(ctx context.Context, id int64, status domain.Status) error {
	result, err := r.db.Exec(ctx, `UPDATE accounts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// UpdateAccount writes login name, profile fields and status.
func (r *Repository) UpdateAccount(ctx context.Context, a *domain.Account) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET login_name = $2, nickname = $3, phone = $4, email = $5, status = $6
		WHERE id = $1
	`,
		a.ID,
		a.LoginName,
		a.Nickname,
		a.Phone,
		a.Email,
		a.Status,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return account.ErrLoginNameExists
		}
		return fmt.Errorf("update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount removes an account. account_roles rows go with it via ON DELETE CASCADE.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// accountRoles loads the roles of the given accounts keyed by account id.
func (r *Repository) accountRoles(ctx context.Context, accountIDs []int64) (map[int64][]domain.Role, error) {
	result := make(map[int64][]domain.Role, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT ar.account_id, r.id, r.code, r.name
		FROM account_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.account_id = ANY($1)
		ORDER BY ar.account_id, r.id
	`, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("get account roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID int64
		var role domain.Role
		if err := rows.Scan(&accountID, &role.ID, &role.Code, &role.Name); err != nil {
			return nil, fmt.Errorf("scan account role: %w", err)
		}
		result[accountID] = append(result[accountID], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account roles: %w", err)
	}

	return result, nil
}
