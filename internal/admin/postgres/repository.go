// Package postgres provides PostgreSQL implementation of the admin repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/bissquit/hotel-admin/internal/admin"
	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the admin.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const userColumns = `id, login_name, password, real_name, phone, email, status, created_at, updated_at`

func scanUser(row pgx.Row, u *domain.User) error {
	return row.Scan(
		&u.ID,
		&u.LoginName,
		&u.Password,
		&u.RealName,
		&u.Phone,
		&u.Email,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// withTx runs fn inside a transaction and commits when fn returns nil.
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListUsers returns one page of users ordered by id and the total match count.
func (r *Repository) ListUsers(ctx context.Context, filter admin.ListFilter) ([]domain.User, int, error) {
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY id LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roles, err := userRoles(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i].Roles = rolesOrEmpty(roles[users[i].ID])
	}

	return users, total, nil
}

// GetUserByID retrieves a user and its roles by id.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByLoginName retrieves a user and its roles by login name.
func (r *Repository) GetUserByLoginName(ctx context.Context, loginName string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE login_name = $1`, loginName)
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	if err := scanUser(r.db.QueryRow(ctx, query, arg), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, admin.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	roles, err := userRoles(ctx, r.db, []int64{u.ID})
	if err != nil {
		return nil, err
	}
	u.Roles = rolesOrEmpty(roles[u.ID])

	return &u, nil
}

// CreateUser inserts the user and its role associations in one transaction.
func (r *Repository) CreateUser(ctx context.Context, u *domain.User, roleIDs []int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (login_name, password, real_name, phone, email, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`,
			u.LoginName,
			u.Password,
			u.RealName,
			u.Phone,
			u.Email,
			u.Status,
		).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return admin.ErrLoginNameExists
			}
			return fmt.Errorf("insert user: %w", err)
		}

		if err := insertUserRoles(ctx, tx, u.ID, roleIDs); err != nil {
			return err
		}

		roles, err := userRoles(ctx, tx, []int64{u.ID})
		if err != nil {
			return err
		}
		u.Roles = rolesOrEmpty(roles[u.ID])
		return nil
	})
}

// UpdateUser updates the profile fields and status of a user.
func (r *Repository) UpdateUser(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET login_name = $2, real_name = $3, phone = $4, email = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		u.ID,
		u.LoginName,
		u.RealName,
		u.Phone,
		u.Email,
		u.Status,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return admin.ErrUserNotFound
		}
		if postgres.IsUniqueViolation(err) {
			return admin.ErrLoginNameExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateUserPassword stores a new password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return admin.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user's role associations and then the user.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user roles: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if result.RowsAffected() == 0 {
			return admin.ErrUserNotFound
		}
		return nil
	})
}

// DeleteUsers removes every id in one transaction. If any id is missing the
// transaction is rolled back and *admin.MissingUsersError lists them.
func (r *Repository) DeleteUsers(ctx context.Context, ids []int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("delete user roles: %w", err)
		}

		rows, err := tx.Query(ctx, `DELETE FROM users WHERE id = ANY($1) RETURNING id`, ids)
		if err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		deleted, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("delete users: %w", err)
		}

		if len(deleted) == len(ids) {
			return nil
		}

		missing := make([]int64, 0, len(ids)-len(deleted))
		for _, id := range ids {
			if !slices.Contains(deleted, id) {
				missing = append(missing, id)
			}
		}
		return &admin.MissingUsersError{IDs: missing}
	})
}

// SetUserRoles replaces all role associations of a user.
func (r *Repository) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the user row so a concurrent delete cannot interleave.
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return admin.ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete old user roles: %w", err)
		}

		return insertUserRoles(ctx, tx, userID, roleIDs)
	})
}

// GetUserRoles returns the roles of an existing user.
func (r *Repository) GetUserRoles(ctx context.Context, userID int64) ([]domain.Role, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, admin.ErrUserNotFound
	}

	roles, err := userRoles(ctx, r.db, []int64{userID})
	if err != nil {
		return nil, err
	}
	return rolesOrEmpty(roles[userID]), nil
}

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Role, error) {
		var role domain.Role
		err := row.Scan(&role.ID, &role.Code, &role.Name)
		return role, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	return roles, nil
}

func insertUserRoles(ctx context.Context, tx pgx.Tx, userID int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
			userID, roleID)
		if err != nil {
			if postgres.IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: %d", admin.ErrRoleNotFound, roleID)
			}
			return fmt.Errorf("insert user role: %w", err)
		}
	}
	return nil
}

// userRoles loads the roles of the given users keyed by user id.
func userRoles(ctx context.Context, q querier, userIDs []int64) (map[int64][]domain.Role, error) {
	result := make(map[int64][]domain.Role, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx, `
		SELECT ur.user_id, r.id, r.code, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY ur.user_id, r.id
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var role domain.Role
		if err := rows.Scan(&userID, &role.ID, &role.Code, &role.Name); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		result[userID] = append(result[userID], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return result, nil
}

func rolesOrEmpty(roles []domain.Role) []domain.Role {
	if roles == nil {
		return make([]domain.Role, 0)
	}
	return roles
}
