package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Repository persists users. Create and UpdateUsername enforce
// case-insensitive username uniqueness atomically and return
// ErrUsernameTaken on collision, so racing writers cannot both claim a
// name. Username lookups are case-insensitive and may return more than one
// row if the uniqueness invariant was somehow violated anyway; callers
// decide how to treat that.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) ([]User, error)
	UpdatePassword(ctx context.Context, id string, hash []byte, tokenVersion int) error
	UpdateUsername(ctx context.Context, id, username string, tokenVersion int) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	DeleteAll(ctx context.Context) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, full_name, email, username, hashed_password, token_version, created_at`

// Create inserts a new user. The users table carries a unique index on
// LOWER(username); a violation surfaces as ErrUsernameTaken so racing
// creates cannot both succeed.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, full_name, email, username, hashed_password, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, user.FullName, user.Email, user.Username, user.HashedPassword, user.TokenVersion, user.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// FindByUsername fetches all users matching the username, compared case-insensitively.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdatePassword replaces the stored hash and bumps the token version.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash []byte, tokenVersion int) error {
	return r.update(ctx, `UPDATE users SET hashed_password = $1, token_version = $2 WHERE id = $3`, hash, tokenVersion, id)
}

// UpdateUsername replaces the username and bumps the token version. The
// LOWER(username) unique index backstops the rename the same way it does
// creation.
func (r *PostgresRepository) UpdateUsername(ctx context.Context, id, username string, tokenVersion int) error {
	err := r.update(ctx, `UPDATE users SET username = $1, token_version = $2 WHERE id = $3`, username, tokenVersion, id)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

// UpdateTokenVersion stores a new token version, invalidating outstanding tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.update(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
}

// DeleteAll removes every user. Test/reset harness use only.
func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users`)
	return err
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	last := len(args) - 1
	userID, err := uuid.Parse(args[last].(string))
	if err != nil {
		return ErrNotFound
	}
	args[last] = userID
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.FullName, &user.Email, &user.Username, &user.HashedPassword, &user.TokenVersion, &createdAt); err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
