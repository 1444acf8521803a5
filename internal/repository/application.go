package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bayaniquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type application struct {
	ID            uuid.UUID  `db:"id"`
	QuestID       uuid.UUID  `db:"quest_id"`
	QuestGiverID  uuid.UUID  `db:"quest_giver_id"`
	QuesterID     uuid.UUID  `db:"quester_id"`
	ApplicantName string     `db:"applicant_name"`
	QuestTitle    string     `db:"quest_title"`
	Status        string     `db:"status"`
	QuesterRated  bool       `db:"quester_rated"`
	GiverRated    bool       `db:"giver_rated"`
	QuesterRating *int       `db:"quester_rating"`
	GiverRating   *int       `db:"giver_rating"`
	QuesterReview *string    `db:"quester_review"`
	GiverReview   *string    `db:"giver_review"`
	AppliedAt     time.Time  `db:"applied_at"`
}

func (a *application) toModel() *model.Application {
	return &model.Application{
		ID:            a.ID,
		QuestID:       a.QuestID,
		QuestGiverID:  a.QuestGiverID,
		QuesterID:     a.QuesterID,
		ApplicantName: a.ApplicantName,
		QuestTitle:    a.QuestTitle,
		Status:        model.ApplicationStatus(a.Status),
		QuesterRated:  a.QuesterRated,
		GiverRated:    a.GiverRated,
		QuesterRating: a.QuesterRating,
		GiverRating:   a.GiverRating,
		QuesterReview: a.QuesterReview,
		GiverReview:   a.GiverReview,
		AppliedAt:     a.AppliedAt,
	}
}

// CreateApplication validates against transaction-fresh quest state and
// inserts a pending application, bumping the quest's applicant counter in
// the same transaction.
func (r *Repository) CreateApplication(ctx context.Context, a *model.Application) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		q, err := r.getQuestWithTx(ctx, tx, a.QuestID)
		if err != nil {
			return err
		}
		if q.Status != model.QuestStatusOpen {
			return ErrQuestNotOpen
		}

		existsQuery, existsArgs, err := squirrel.
			Select("count(*)").
			From("applications").
			Where(squirrel.Eq{
				"quest_id":   a.QuestID,
				"quester_id": a.QuesterID,
				"status": []string{
					string(model.ApplicationStatusPending),
					string(model.ApplicationStatusHired),
				},
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build existing application query: %w", err)
		}

		var existing int
		err = tx.GetContext(ctx, &existing, existsQuery, existsArgs...)
		if err != nil {
			return fmt.Errorf("failed to check existing applications: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyApplied
		}

		insertQuery, insertArgs, err := squirrel.
			Insert("applications").
			SetMap(map[string]interface{}{
				"id":             a.ID,
				"quest_id":       a.QuestID,
				"quest_giver_id": q.QuestGiverID,
				"quester_id":     a.QuesterID,
				"applicant_name": a.ApplicantName,
				"quest_title":    q.Title,
				"status":         string(model.ApplicationStatusPending),
				"applied_at":     a.AppliedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build application insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, insertQuery, insertArgs...)
		if err != nil {
			// Two concurrent applies can both pass the count check; the
			// loser hits the live-application unique index.
			if isUniqueViolation(err) {
				return ErrAlreadyApplied
			}
			return fmt.Errorf("failed to insert application: %w", err)
		}

		return r.adjustApplicantCountWithTx(ctx, tx, a.QuestID, 1)
	})
}

func (r *Repository) GetApplicationByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var a application
	query, args, err := squirrel.
		Select("*").
		From("applications").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &a, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return a.toModel(), nil
}

func (r *Repository) getApplicationWithTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Application, error) {
	var a application
	query, args, err := squirrel.
		Select("*").
		From("applications").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &a, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return a.toModel(), nil
}

func (r *Repository) ListApplicationsByQuester(ctx context.Context, questerID uuid.UUID) ([]*model.Application, error) {
	return r.listApplications(ctx, squirrel.Eq{"quester_id": questerID})
}

func (r *Repository) ListApplicationsByQuest(ctx context.Context, questID uuid.UUID) ([]*model.Application, error) {
	return r.listApplications(ctx, squirrel.Eq{"quest_id": questID})
}

func (r *Repository) listApplications(ctx context.Context, where squirrel.Eq) ([]*model.Application, error) {
	query, args, err := squirrel.
		Select("*").
		From("applications").
		Where(where).
		OrderBy("applied_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var apps []application
	err = r.db.SelectContext(ctx, &apps, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	out := make([]*model.Application, len(apps))
	for i := range apps {
		out[i] = apps[i].toModel()
	}
	return out, nil
}

// RejectApplication moves a pending application to rejected and keeps the
// quest's pending counter in step.
func (r *Repository) RejectApplication(ctx context.Context, id uuid.UUID) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		a, err := r.getApplicationWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if a.Status != model.ApplicationStatusPending {
			return ErrApplicationNotPending
		}

		if err := r.setApplicationStatusWithTx(ctx, tx, id,
			model.ApplicationStatusPending, model.ApplicationStatusRejected); err != nil {
			return err
		}

		return r.adjustApplicantCountWithTx(ctx, tx, a.QuestID, -1)
	})
}

// WithdrawApplication deletes the caller's pending application. After a
// withdraw the quester can apply to the same quest again.
func (r *Repository) WithdrawApplication(ctx context.Context, id, questerID uuid.UUID) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		a, err := r.getApplicationWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if a.QuesterID != questerID {
			return ErrNotFound
		}
		if a.Status != model.ApplicationStatusPending {
			return ErrApplicationNotPending
		}

		deleteQuery, deleteArgs, err := squirrel.
			Delete("applications").
			Where(squirrel.Eq{
				"id":     id,
				"status": string(model.ApplicationStatusPending),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...)
		if err != nil {
			return fmt.Errorf("failed to delete application: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrApplicationNotPending
		}

		return r.adjustApplicantCountWithTx(ctx, tx, a.QuestID, -1)
	})
}

func (r *Repository) setApplicationStatusWithTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to model.ApplicationStatus) error {
	query, args, err := squirrel.
		Update("applications").
		Set("status", string(to)).
		Where(squirrel.Eq{
			"id":     id,
			"status": string(from),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrApplicationNotPending
	}
	return nil
}

func (r *Repository) adjustApplicantCountWithTx(ctx context.Context, tx *sqlx.Tx, questID uuid.UUID, delta int) error {
	query, args, err := squirrel.
		Update("quests").
		Set("applicant_count", squirrel.Expr("applicant_count + ?", delta)).
		Where(squirrel.Eq{"id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to adjust applicant count: %w", err)
	}
	return nil
}
