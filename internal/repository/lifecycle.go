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

// Lifecycle transactions. Each operation gathers every read first,
// validates against that fresh state, then issues every write, so a
// concurrent committer invalidates the guards and the loser rolls back
// instead of double-debiting.

// HireApplicant debits the giver by the quest price, moves the quest to
// in-progress with the price held in escrow, and marks the chosen
// application hired. The other pending applications are NOT touched
// here; RejectOtherPending runs as a separate best-effort pass.
func (r *Repository) HireApplicant(ctx context.Context, questID, applicationID, applicantID, giverID uuid.UUID) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		q, err := r.getQuestWithTx(ctx, tx, questID)
		if err != nil {
			return err
		}
		giver, err := r.getUserWithTx(ctx, tx, giverID)
		if err != nil {
			return err
		}
		a, err := r.getApplicationWithTx(ctx, tx, applicationID)
		if err != nil {
			return err
		}

		if q.Status != model.QuestStatusOpen {
			return ErrQuestNotOpen
		}
		if a.QuestID != questID || a.QuesterID != applicantID {
			return ErrApplicationNotMatching
		}
		if a.Status != model.ApplicationStatusPending {
			return ErrApplicationNotPending
		}
		// Authorize against the balance read inside this transaction,
		// never a cached one.
		if giver.WalletBalance < q.Price {
			return ErrInsufficientFunds
		}

		if err := r.adjustBalanceWithTx(ctx, tx, giverID, -q.Price); err != nil {
			return err
		}

		questQuery, questArgs, err := squirrel.
			Update("quests").
			Set("status", string(model.QuestStatusInProgress)).
			Set("hired_applicant_id", applicantID).
			Set("escrow_amount", int64(q.Price)).
			Where(squirrel.Eq{
				"id":     questID,
				"status": string(model.QuestStatusOpen),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, questQuery, questArgs...)
		if err != nil {
			return fmt.Errorf("failed to move quest to in-progress: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrQuestNotOpen
		}

		if err := r.setApplicationStatusWithTx(ctx, tx, applicationID,
			model.ApplicationStatusPending, model.ApplicationStatusHired); err != nil {
			return err
		}

		// The hired application leaves the pending set.
		return r.adjustApplicantCountWithTx(ctx, tx, questID, -1)
	})
}

// RejectOtherPending flips every remaining pending application on a quest
// to rejected and zeroes the pending counter. Best effort after a hire;
// failures are surfaced so the caller can log them, but the hire itself
// has already committed.
func (r *Repository) RejectOtherPending(ctx context.Context, questID, exceptApplicationID uuid.UUID) (int64, error) {
	var rejected int64
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("applications").
			Set("status", string(model.ApplicationStatusRejected)).
			Where(squirrel.Eq{
				"quest_id": questID,
				"status":   string(model.ApplicationStatusPending),
			}).
			Where(squirrel.NotEq{"id": exceptApplicationID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to reject pending applications: %w", err)
		}
		rejected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if rejected > 0 {
			return r.adjustApplicantCountWithTx(ctx, tx, questID, -int(rejected))
		}
		return nil
	})
	return rejected, err
}

// CompleteQuest pays the escrow out to the hired quester, bumps both
// completion counters, and closes the quest and application. When giver
// and quester are the same identity the counters fold into one record
// and the wallet round trip is skipped.
func (r *Repository) CompleteQuest(ctx context.Context, questID, giverID uuid.UUID) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		q, err := r.getQuestWithTx(ctx, tx, questID)
		if err != nil {
			return err
		}
		if q.Status != model.QuestStatusInProgress || q.HiredApplicantID == nil {
			return ErrQuestNotInProgress
		}
		questerID := *q.HiredApplicantID

		if _, err := r.getUserWithTx(ctx, tx, giverID); err != nil {
			return err
		}
		if questerID != giverID {
			if _, err := r.getUserWithTx(ctx, tx, questerID); err != nil {
				return err
			}
		}

		hiredAppID, err := r.hiredApplicationID(ctx, tx, questID)
		if err != nil {
			return err
		}

		escrow := q.EscrowAmount

		questQuery, questArgs, err := squirrel.
			Update("quests").
			Set("status", string(model.QuestStatusCompleted)).
			Set("escrow_amount", 0).
			Set("completed_at", time.Now().UTC()).
			Where(squirrel.Eq{
				"id":     questID,
				"status": string(model.QuestStatusInProgress),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, questQuery, questArgs...)
		if err != nil {
			return fmt.Errorf("failed to complete quest: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrQuestNotInProgress
		}

		if questerID == giverID {
			// One record: both counters, and the escrow returns to the
			// single wallet exactly once.
			selfQuery, selfArgs, err := squirrel.
				Update("users").
				Set("quests_completed", squirrel.Expr("quests_completed + 1")).
				Set("quests_given_completed", squirrel.Expr("quests_given_completed + 1")).
				Set("wallet_balance", squirrel.Expr("wallet_balance + ?", int64(escrow))).
				Where(squirrel.Eq{"id": giverID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, selfQuery, selfArgs...); err != nil {
				return fmt.Errorf("failed to update self counters: %w", err)
			}
		} else {
			questerQuery, questerArgs, err := squirrel.
				Update("users").
				Set("quests_completed", squirrel.Expr("quests_completed + 1")).
				Set("wallet_balance", squirrel.Expr("wallet_balance + ?", int64(escrow))).
				Where(squirrel.Eq{"id": questerID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, questerQuery, questerArgs...); err != nil {
				return fmt.Errorf("failed to pay out quester: %w", err)
			}

			giverQuery, giverArgs, err := squirrel.
				Update("users").
				Set("quests_given_completed", squirrel.Expr("quests_given_completed + 1")).
				Where(squirrel.Eq{"id": giverID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, giverQuery, giverArgs...); err != nil {
				return fmt.Errorf("failed to update giver counters: %w", err)
			}
		}

		return r.setApplicationStatusWithTx(ctx, tx, hiredAppID,
			model.ApplicationStatusHired, model.ApplicationStatusCompleted)
	})
}

// hiredApplicationID resolves the hired application for a quest inside
// the transaction.
func (r *Repository) hiredApplicationID(ctx context.Context, tx *sqlx.Tx, questID uuid.UUID) (uuid.UUID, error) {
	query, args, err := squirrel.
		Select("id").
		From("applications").
		Where(squirrel.Eq{
			"quest_id": questID,
			"status":   string(model.ApplicationStatusHired),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = tx.GetContext(ctx, &id, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve hired application: %w", err)
	}
	return id, nil
}

// CancelHire refunds the escrow to the giver, reopens the quest, and
// rejects the previously hired application.
func (r *Repository) CancelHire(ctx context.Context, questID, applicationID, giverID uuid.UUID) (money.Amount, error) {
	var refunded money.Amount
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		q, err := r.getQuestWithTx(ctx, tx, questID)
		if err != nil {
			return err
		}
		if q.Status != model.QuestStatusInProgress {
			return ErrQuestNotInProgress
		}
		a, err := r.getApplicationWithTx(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if a.QuestID != questID {
			return ErrApplicationNotMatching
		}

		// Refund what the fresh read says is escrowed, never a
		// caller-supplied amount.
		refunded = q.EscrowAmount

		if err := r.adjustBalanceWithTx(ctx, tx, giverID, refunded); err != nil {
			return err
		}

		questQuery, questArgs, err := squirrel.
			Update("quests").
			Set("status", string(model.QuestStatusOpen)).
			Set("hired_applicant_id", nil).
			Set("escrow_amount", 0).
			Where(squirrel.Eq{
				"id":     questID,
				"status": string(model.QuestStatusInProgress),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, questQuery, questArgs...)
		if err != nil {
			return fmt.Errorf("failed to reopen quest: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrQuestNotInProgress
		}

		return r.setApplicationStatusWithTx(ctx, tx, applicationID,
			model.ApplicationStatusHired, model.ApplicationStatusRejected)
	})
	return refunded, err
}

// RateCounterparty applies a one-time rating to the counterparty of a
// completed application: the aggregate score and count on the rated user
// and the rated flag on the application move in the same transaction, so
// a repeat attempt cannot re-increment the average.
func (r *Repository) RateCounterparty(ctx context.Context, applicationID uuid.UUID, direction model.RatingDirection, stars int, review *string) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		a, err := r.getApplicationWithTx(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if a.Status != model.ApplicationStatusCompleted {
			return ErrApplicationNotCompleted
		}

		var ratedUserID uuid.UUID
		appUpdate := squirrel.Update("applications").PlaceholderFormat(squirrel.Dollar)

		switch direction {
		case model.RateQuester:
			if a.QuesterRated {
				return ErrAlreadyRated
			}
			ratedUserID = a.QuesterID
			appUpdate = appUpdate.
				Set("quester_rated", true).
				Set("quester_rating", stars).
				Set("quester_review", review).
				Where(squirrel.Eq{
					"id":            applicationID,
					"quester_rated": false,
				})
		case model.RateGiver:
			if a.GiverRated {
				return ErrAlreadyRated
			}
			ratedUserID = a.QuestGiverID
			appUpdate = appUpdate.
				Set("giver_rated", true).
				Set("giver_rating", stars).
				Set("giver_review", review).
				Where(squirrel.Eq{
					"id":          applicationID,
					"giver_rated": false,
				})
		default:
			return fmt.Errorf("unknown rating direction %q", direction)
		}

		if _, err := r.getUserWithTx(ctx, tx, ratedUserID); err != nil {
			return err
		}

		userQuery, userArgs, err := squirrel.
			Update("users").
			Set("total_rating_score", squirrel.Expr("total_rating_score + ?", stars)).
			Set("number_of_ratings", squirrel.Expr("number_of_ratings + 1")).
			Where(squirrel.Eq{"id": ratedUserID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, userQuery, userArgs...); err != nil {
			return fmt.Errorf("failed to update rating aggregates: %w", err)
		}

		appQuery, appArgs, err := appUpdate.ToSql()
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, appQuery, appArgs...)
		if err != nil {
			return fmt.Errorf("failed to mark application rated: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return ErrAlreadyRated
		}
		return nil
	})
}
