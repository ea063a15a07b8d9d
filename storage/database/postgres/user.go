package pgdb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/user"
)

var byNewestFirst = core.DBOrdering{Field: "created_at"}

type userRepository struct {
	db core.DBExecutor
}

func NewUserRepository(db core.DBExecutor) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM users WHERE username = $1`
	args := []interface{}{username}
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		inQuery, inArgs, err := sqlx.In(`SELECT COUNT(*) FROM users WHERE username = ? AND id NOT IN (?)`, username, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query = repo.db.Rebind(inQuery)
		args = inArgs
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
		INSERT INTO users (username, first_name, last_name, role, is_active, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.GetContext(
		ctx, &usr.ID, query,
		usr.Username, usr.FirstName, usr.LastName, usr.Role, usr.IsActive, usr.PasswordHash,
		usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY `+byNewestFirst.String()); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, `SELECT * FROM users WHERE username = $1`, username); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	query := `
		UPDATE users
		SET is_active  = COALESCE($2::boolean, is_active),
			last_login = CASE WHEN $3::boolean THEN $4 ELSE last_login END,
			updated_at = $5
		WHERE id = $1
		RETURNING *`
	var updated user.User
	err := repo.db.GetContext(
		ctx, &updated, query,
		usr.ID, isActive, !usr.LastLogin.IsZero(), usr.LastLogin, usr.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return updated, nil
}

func (repo *userRepository) UpdatePassword(ctx context.Context, usr user.User) (user.User, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
			updated_at    = $3
		WHERE id = $1
		RETURNING *`
	var updated user.User
	err := repo.db.GetContext(ctx, &updated, query, usr.ID, usr.PasswordHash, usr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating password")
	}
	return updated, nil
}
