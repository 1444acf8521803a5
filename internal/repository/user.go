package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bayaniquest/internal/model"
	"bayaniquest/pkg/money"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type user struct {
	ID                   uuid.UUID `db:"id"`
	Name                 string    `db:"name"`
	Email                string    `db:"email"`
	PasswordHash         string    `db:"password_hash"`
	Status               string    `db:"status"`
	IsAdmin              bool      `db:"is_admin"`
	AvatarURL            string    `db:"avatar_url"`
	WalletBalance        int64     `db:"wallet_balance"`
	TotalRatingScore     int       `db:"total_rating_score"`
	NumberOfRatings      int       `db:"number_of_ratings"`
	QuestsPosted         int       `db:"quests_posted"`
	QuestsCompleted      int       `db:"quests_completed"`
	QuestsGivenCompleted int       `db:"quests_given_completed"`
	RegistrationDate     time.Time `db:"registration_date"`
}

func (u *user) toModel() *model.User {
	return &model.User{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		PasswordHash:         u.PasswordHash,
		Status:               model.UserStatus(u.Status),
		IsAdmin:              u.IsAdmin,
		AvatarURL:            u.AvatarURL,
		WalletBalance:        money.Amount(u.WalletBalance),
		TotalRatingScore:     u.TotalRatingScore,
		NumberOfRatings:      u.NumberOfRatings,
		QuestsPosted:         u.QuestsPosted,
		QuestsCompleted:      u.QuestsCompleted,
		QuestsGivenCompleted: u.QuestsGivenCompleted,
		RegistrationDate:     u.RegistrationDate,
	}
}

// CreateUser inserts a pending user seeded with the signup credit.
// The seed is part of the same insert, so the one-time credit can
// never be applied twice.
func (r *Repository) CreateUser(ctx context.Context, u *model.User) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"id":                u.ID,
				"name":              u.Name,
				"email":             u.Email,
				"password_hash":     u.PasswordHash,
				"status":            string(u.Status),
				"avatar_url":        u.AvatarURL,
				"wallet_balance":    int64(u.WalletBalance),
				"registration_date": u.RegistrationDate,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		return nil
	})
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u user
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &u, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return u.toModel(), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u user
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &u, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return u.toModel(), nil
}

func (r *Repository) getUserWithTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.User, error) {
	var u user
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &u, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return u.toModel(), nil
}

// adjustBalanceWithTx is the ledger primitive: a field-level increment of
// wallet_balance. It is only ever composed inside a larger transaction so
// a balance change and its quest/application state change land together.
func (r *Repository) adjustBalanceWithTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta money.Amount) error {
	query, args, err := squirrel.
		Update("users").
		Set("wallet_balance", squirrel.Expr("wallet_balance + ?", int64(delta))).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return nil
}

// TopUpBalance credits a user's wallet. Positive deltas only; debits
// happen exclusively inside lifecycle transactions.
func (r *Repository) TopUpBalance(ctx context.Context, id uuid.UUID, amount money.Amount) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getUserWithTx(ctx, tx, id); err != nil {
			return err
		}
		return r.adjustBalanceWithTx(ctx, tx, id, amount)
	})
}

func (r *Repository) ListUsersByStatus(ctx context.Context, status model.UserStatus) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("registration_date ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []user
	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = users[i].toModel()
	}
	return out, nil
}

// ApproveUser flips a pending user to approved. Approving an already
// approved user is a no-op reported as not found.
func (r *Repository) ApproveUser(ctx context.Context, id uuid.UUID) error {
	query, args, err := squirrel.
		Update("users").
		Set("status", string(model.UserStatusApproved)).
		Where(squirrel.Eq{
			"id":     id,
			"status": string(model.UserStatusPending),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to approve user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// pgx wraps pq-style SQLSTATE codes; 23505 is unique_violation.
	type sqlStater interface{ SQLState() string }
	var s sqlStater
	return errors.As(err, &s) && s.SQLState() == "23505"
}
