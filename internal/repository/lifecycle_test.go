package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"bayaniquest/internal/model"
	"bayaniquest/pkg/money"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "pgx")), mock
}

func questRows(id, giverID uuid.UUID, status string, price, escrow int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "quest_giver_id", "title", "price", "status",
		"escrow_amount", "applicant_count", "created_at",
	}).AddRow(id.String(), giverID.String(), "Fix the fence", price, status, escrow, 1, time.Now())
}

func userRows(id uuid.UUID, balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "status", "wallet_balance", "registration_date",
	}).AddRow(id.String(), "Juan", "approved", balance, time.Now())
}

func applicationRows(id, questID, giverID, questerID uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "quest_id", "quest_giver_id", "quester_id", "status",
		"quester_rated", "giver_rated", "applied_at",
	}).AddRow(id.String(), questID.String(), giverID.String(), questerID.String(), status, false, false, time.Now())
}

func TestRepository_HireApplicant(t *testing.T) {
	questID := uuid.New()
	applicationID := uuid.New()
	giverID := uuid.New()
	questerID := uuid.New()

	t.Run("debits the giver and escrows the price in one transaction", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 200000))
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "pending"))
		mock.ExpectExec("UPDATE users SET wallet_balance = wallet_balance \\+").
			WithArgs(int64(-120000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE quests SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE applications SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE quests SET applicant_count").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.HireApplicant(context.Background(), questID, applicationID, questerID, giverID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls back before any write", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 50000))
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "pending"))
		mock.ExpectRollback()

		err := repo.HireApplicant(context.Background(), questID, applicationID, questerID, giverID)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("quest no longer open", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "in-progress", 120000, 120000))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 200000))
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "pending"))
		mock.ExpectRollback()

		err := repo.HireApplicant(context.Background(), questID, applicationID, questerID, giverID)
		assert.ErrorIs(t, err, ErrQuestNotOpen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent hire invalidates the guarded update", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 200000))
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "pending"))
		mock.ExpectExec("UPDATE users SET wallet_balance = wallet_balance \\+").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE quests SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.HireApplicant(context.Background(), questID, applicationID, questerID, giverID)
		assert.ErrorIs(t, err, ErrQuestNotOpen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func hiredQuestRows(id, giverID, hiredID uuid.UUID, escrow int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "quest_giver_id", "title", "price", "status",
		"hired_applicant_id", "escrow_amount", "applicant_count", "created_at",
	}).AddRow(id.String(), giverID.String(), "Fix the fence", escrow, "in-progress",
		hiredID.String(), escrow, 0, time.Now())
}

func hiredAppIDRows(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id.String())
}

func TestRepository_CompleteQuest(t *testing.T) {
	questID := uuid.New()
	applicationID := uuid.New()
	giverID := uuid.New()
	questerID := uuid.New()

	t.Run("pays the quester the escrow and bumps both counters", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(hiredQuestRows(questID, giverID, questerID, 120000))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 0))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(questerID, 0))
		mock.ExpectQuery("SELECT id FROM applications").
			WillReturnRows(hiredAppIDRows(applicationID))
		mock.ExpectExec("UPDATE quests SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET quests_completed = quests_completed \\+ 1, wallet_balance = wallet_balance \\+").
			WithArgs(int64(120000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET quests_given_completed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE applications SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CompleteQuest(context.Background(), questID, giverID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("giver completing own hire keeps the escrow on one wallet", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(hiredQuestRows(questID, giverID, giverID, 120000))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 0))
		mock.ExpectQuery("SELECT id FROM applications").
			WillReturnRows(hiredAppIDRows(applicationID))
		mock.ExpectExec("UPDATE quests SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET quests_completed = quests_completed \\+ 1, quests_given_completed = quests_given_completed \\+ 1, wallet_balance = wallet_balance \\+").
			WithArgs(int64(120000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE applications SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CompleteQuest(context.Background(), questID, giverID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("quest not in progress", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectRollback()

		err := repo.CompleteQuest(context.Background(), questID, giverID)
		assert.ErrorIs(t, err, ErrQuestNotInProgress)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent completion invalidates the guarded update", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(hiredQuestRows(questID, giverID, questerID, 120000))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 0))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(questerID, 0))
		mock.ExpectQuery("SELECT id FROM applications").
			WillReturnRows(hiredAppIDRows(applicationID))
		mock.ExpectExec("UPDATE quests SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CompleteQuest(context.Background(), questID, giverID)
		assert.ErrorIs(t, err, ErrQuestNotInProgress)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hired application lookup failure is not reported as missing", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(hiredQuestRows(questID, giverID, questerID, 120000))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(giverID, 0))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(questerID, 0))
		mock.ExpectQuery("SELECT id FROM applications").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := repo.CompleteQuest(context.Background(), questID, giverID)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_CancelHire(t *testing.T) {
	questID := uuid.New()
	applicationID := uuid.New()
	giverID := uuid.New()
	questerID := uuid.New()

	t.Run("refunds the escrowed amount from the fresh read", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "in-progress", 120000, 120000))
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "hired"))
		mock.ExpectExec("UPDATE users SET wallet_balance = wallet_balance \\+").
			WithArgs(int64(120000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE quests SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE applications SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		refunded, err := repo.CancelHire(context.Background(), questID, applicationID, giverID)
		assert.NoError(t, err)
		assert.Equal(t, money.Amount(120000), refunded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("quest not in progress", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM quests").
			WillReturnRows(questRows(questID, giverID, "open", 120000, 0))
		mock.ExpectRollback()

		_, err := repo.CancelHire(context.Background(), questID, applicationID, giverID)
		assert.ErrorIs(t, err, ErrQuestNotInProgress)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_RateCounterparty(t *testing.T) {
	questID := uuid.New()
	applicationID := uuid.New()
	giverID := uuid.New()
	questerID := uuid.New()

	t.Run("flag and aggregates move together", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "completed"))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(questerID, 0))
		mock.ExpectExec("UPDATE users SET total_rating_score").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE applications SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.RateCounterparty(context.Background(), applicationID, model.RateQuester, 5, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repeat rating loses against the guarded update", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "completed"))
		mock.ExpectQuery("SELECT (.+) FROM users").
			WillReturnRows(userRows(questerID, 0))
		mock.ExpectExec("UPDATE users SET total_rating_score").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE applications SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.RateCounterparty(context.Background(), applicationID, model.RateQuester, 5, nil)
		assert.ErrorIs(t, err, ErrAlreadyRated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("application not completed", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM applications").
			WillReturnRows(applicationRows(applicationID, questID, giverID, questerID, "hired"))
		mock.ExpectRollback()

		err := repo.RateCounterparty(context.Background(), applicationID, model.RateGiver, 4, nil)
		assert.ErrorIs(t, err, ErrApplicationNotCompleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
