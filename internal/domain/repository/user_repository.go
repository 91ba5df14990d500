package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"geoauth/internal/common"
	"geoauth/internal/domain/model"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type UserRepository interface {
	Create(ctx context.Context, username, email, hashedPassword string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error)
}

type sqliteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

const userColumns = `id, username, email, password, created_at`

func (r *sqliteUserRepository) Create(ctx context.Context, username, email, hashedPassword string) (*model.User, error) {
	const query = `INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?)`
	createdAt := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.ExecContext(ctx, query, username, email, hashedPassword, createdAt)
	if err != nil && isBusyError(err) {
		// One retry on writer-lock contention; a second failure surfaces as is.
		res, err = r.db.ExecContext(ctx, query, username, email, hashedPassword, createdAt)
	}
	if err != nil {
		return nil, translateWriteError("create user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *sqliteUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqliteUserRepository.FindByUsername: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqliteUserRepository.FindByID: %w", err)
	}
	return user, nil
}

// Update applies only the fields present in patch. An empty patch is a no-op
// that succeeds and returns the current record.
func (r *sqliteUserRepository) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	if patch.IsZero() {
		return r.FindByID(ctx, id)
	}

	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.HashedPassword != nil {
		sets = append(sets, "password = ?")
		args = append(args, *patch.HashedPassword)
	}
	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil && isBusyError(err) {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return nil, translateWriteError("update user", err)
	}
	return r.FindByID(ctx, id)
}

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var createdAt string
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	user.CreatedAt = ts
	return user, nil
}

// translateWriteError maps driver errors into the domain taxonomy, naming the
// violated column when a uniqueness constraint fired.
func translateWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err, "users.username"):
		return common.ErrDuplicateUsername
	case isUniqueViolation(err, "users.email"):
		return common.ErrDuplicateEmail
	case isBusyError(err):
		return fmt.Errorf("%s: %w", op, common.ErrContention)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUniqueViolation(err error, column string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code != sqlite3.SQLITE_CONSTRAINT && code != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(err.Error(), column)
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
