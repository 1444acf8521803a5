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

type quest struct {
	ID               uuid.UUID  `db:"id"`
	QuestGiverID     uuid.UUID  `db:"quest_giver_id"`
	QuestGiverName   string     `db:"quest_giver_name"`
	Title            string     `db:"title"`
	Description      string     `db:"description"`
	Category         string     `db:"category"`
	WorkType         string     `db:"work_type"`
	ImageURL         string     `db:"image_url"`
	LocationLat      *float64   `db:"location_lat"`
	LocationLng      *float64   `db:"location_lng"`
	LocationAddress  string     `db:"location_address"`
	Price            int64      `db:"price"`
	Status           string     `db:"status"`
	HiredApplicantID *uuid.UUID `db:"hired_applicant_id"`
	EscrowAmount     int64      `db:"escrow_amount"`
	ApplicantCount   int        `db:"applicant_count"`
	CreatedAt        time.Time  `db:"created_at"`
	CompletedAt      *time.Time `db:"completed_at"`
}

func (q *quest) toModel() *model.Quest {
	return &model.Quest{
		ID:               q.ID,
		QuestGiverID:     q.QuestGiverID,
		QuestGiverName:   q.QuestGiverName,
		Title:            q.Title,
		Description:      q.Description,
		Category:         q.Category,
		WorkType:         q.WorkType,
		ImageURL:         q.ImageURL,
		LocationLat:      q.LocationLat,
		LocationLng:      q.LocationLng,
		LocationAddress:  q.LocationAddress,
		Price:            money.Amount(q.Price),
		Status:           model.QuestStatus(q.Status),
		HiredApplicantID: q.HiredApplicantID,
		EscrowAmount:     money.Amount(q.EscrowAmount),
		ApplicantCount:   q.ApplicantCount,
		CreatedAt:        q.CreatedAt,
		CompletedAt:      q.CompletedAt,
	}
}

// CreateQuest inserts an open quest and bumps the giver's posted counter
// in the same transaction.
func (r *Repository) CreateQuest(ctx context.Context, q *model.Quest) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getUserWithTx(ctx, tx, q.QuestGiverID); err != nil {
			return err
		}

		query, args, err := squirrel.
			Insert("quests").
			SetMap(map[string]interface{}{
				"id":               q.ID,
				"quest_giver_id":   q.QuestGiverID,
				"quest_giver_name": q.QuestGiverName,
				"title":            q.Title,
				"description":      q.Description,
				"category":         q.Category,
				"work_type":        q.WorkType,
				"image_url":        q.ImageURL,
				"location_lat":     q.LocationLat,
				"location_lng":     q.LocationLng,
				"location_address": q.LocationAddress,
				"price":            int64(q.Price),
				"status":           string(model.QuestStatusOpen),
				"escrow_amount":    0,
				"applicant_count":  0,
				"created_at":       q.CreatedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert quest: %w", err)
		}

		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("quests_posted", squirrel.Expr("quests_posted + 1")).
			Where(squirrel.Eq{"id": q.QuestGiverID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build giver update query: %w", err)
		}

		_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to update giver counters: %w", err)
		}

		return nil
	})
}

func (r *Repository) GetQuestByID(ctx context.Context, id uuid.UUID) (*model.Quest, error) {
	var q quest
	query, args, err := squirrel.
		Select("*").
		From("quests").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &q, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return q.toModel(), nil
}

func (r *Repository) getQuestWithTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Quest, error) {
	var q quest
	query, args, err := squirrel.
		Select("*").
		From("quests").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &q, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return q.toModel(), nil
}

func (r *Repository) ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	builder := squirrel.
		Select("*").
		From("quests").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.Category != "" {
		builder = builder.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.WorkType != "" {
		builder = builder.Where(squirrel.Eq{"work_type": filter.WorkType})
	}
	if filter.GiverID != nil {
		builder = builder.Where(squirrel.Eq{"quest_giver_id": *filter.GiverID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build quest list query: %w", err)
	}

	var quests []quest
	err = r.db.SelectContext(ctx, &quests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}

	out := make([]*model.Quest, len(quests))
	for i := range quests {
		out[i] = quests[i].toModel()
	}
	return out, nil
}

// SetQuestStatus flips a quest between open and paused with a guarded
// update. A zero row count is diagnosed with a fresh read so the caller
// gets the precise failure rather than a blanket error.
func (r *Repository) SetQuestStatus(ctx context.Context, id uuid.UUID, from, to model.QuestStatus) error {
	query, args, err := squirrel.
		Update("quests").
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

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update quest status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		_, err := r.GetQuestByID(ctx, id)
		if err != nil {
			return err
		}
		return ErrQuestNotPausable
	}
	return nil
}

// DeleteQuest removes a quest only while it is open or paused. Escrowed
// or completed quests must keep their records.
func (r *Repository) DeleteQuest(ctx context.Context, id uuid.UUID) error {
	query, args, err := squirrel.
		Delete("quests").
		Where(squirrel.Eq{
			"id": id,
			"status": []string{
				string(model.QuestStatusOpen),
				string(model.QuestStatusPaused),
			},
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		_, err := r.GetQuestByID(ctx, id)
		if err != nil {
			return err
		}
		return ErrQuestNotDeletable
	}
	return nil
}
