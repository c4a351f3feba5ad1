package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/model"
)

var userCols = []string{"id", "name", "email", "pwd_hash", "salt", "role", "ai_usage_date", "ai_usage_count", "created_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{
		ID:      uuid.Must(uuid.NewV4()),
		Name:    "Asha",
		Email:   "asha@example.com",
		PwdHash: []byte("h"),
		Salt:    []byte("s"),
		Role:    model.RoleUser,
	}

	mock.ExpectExec(`INSERT INTO users \(id, name, email, pwd_hash, salt, role\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs(u.ID, u.Name, u.Email, u.PwdHash, u.Salt, "user").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Name, u.Email, u.PwdHash, u.Salt, "user").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "Asha", "asha@example.com", []byte("h"), []byte("s"), "admin", "2024-05-01", 4, created))
	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, model.RoleAdmin, u.Role)
	require.Equal(t, model.AIUsage{Date: "2024-05-01", Count: 4}, u.AIUsage)
	require.Equal(t, created, u.CreatedAt)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(errors.New("conn reset"))
	_, err = r.GetByID(ctx, id)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	email := "b@example.com"

	mock.ExpectQuery(`FROM users WHERE email=\$1`).
		WithArgs(email).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "B", email, []byte("h"), []byte("s"), "user", "", 0, time.Now()))
	u, err := r.GetByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, email, u.Email)

	mock.ExpectQuery(`FROM users WHERE email=\$1`).
		WithArgs(email).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, email)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_Exists(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM users WHERE id=\$1\)`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	ok, err := r.Exists(context.Background(), id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM assessments WHERE user_id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	require.NoError(t, r.Delete(ctx, id))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM assessments WHERE user_id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()
	require.ErrorIs(t, r.Delete(ctx, id), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ConsumeAIRequest(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	today := "2024-05-02"
	usageCols := []string{"ai_usage_date", "ai_usage_count"}

	t.Run("increments same day", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewUserRepo(db)

		mock.ExpectQuery(`SELECT ai_usage_date, ai_usage_count FROM users WHERE id=\$1`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(usageCols).AddRow(today, 7))
		mock.ExpectExec(`UPDATE users SET ai_usage_date=\$2, ai_usage_count=\$3 WHERE id=\$1 AND ai_usage_date=\$4 AND ai_usage_count=\$5`).
			WithArgs(id, today, 8, today, 7).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		w, ok, err := r.ConsumeAIRequest(ctx, id, today, 100)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 8, w.Count)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("resets on new day", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewUserRepo(db)

		mock.ExpectQuery(`SELECT ai_usage_date`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(usageCols).AddRow("2024-05-01", 100))
		mock.ExpectExec(`UPDATE users SET ai_usage_date`).
			WithArgs(id, today, 1, "2024-05-01", 100).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		w, ok, err := r.ConsumeAIRequest(ctx, id, today, 100)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, today, w.Date)
		require.Equal(t, 1, w.Count)
	})

	t.Run("denied at ceiling without write", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewUserRepo(db)

		mock.ExpectQuery(`SELECT ai_usage_date`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(usageCols).AddRow(today, 100))

		w, ok, err := r.ConsumeAIRequest(ctx, id, today, 100)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, 100, w.Count)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries after concurrent write", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewUserRepo(db)

		mock.ExpectQuery(`SELECT ai_usage_date`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(usageCols).AddRow(today, 98))
		mock.ExpectExec(`UPDATE users SET ai_usage_date`).
			WithArgs(id, today, 99, today, 98).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT ai_usage_date`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(usageCols).AddRow(today, 99))
		mock.ExpectExec(`UPDATE users SET ai_usage_date`).
			WithArgs(id, today, 100, today, 99).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		w, ok, err := r.ConsumeAIRequest(ctx, id, today, 100)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 100, w.Count)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := newDB(t)
		defer mock.Close()
		r := NewUserRepo(db)

		mock.ExpectQuery(`SELECT ai_usage_date`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)
		_, _, err := r.ConsumeAIRequest(ctx, id, today, 100)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestUserRepo_Count(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM users`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))
	n, err := r.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, n)
}
