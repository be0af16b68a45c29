package alertlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewRepo(&DB{DB: sqlx.NewDb(db, "postgres")}), mock
}

func TestDeleteOlderThan(t *testing.T) {
	repo, mock := newMockRepo(t)
	threshold := time.Unix(1_700_000_000, 0)

	mock.ExpectExec("DELETE FROM alert_history").
		WithArgs(threshold).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteOlderThan(context.Background(), threshold)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 3 {
		t.Errorf("pruned rows = %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteOlderThanRowCountError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM alert_history").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows affected unsupported")))

	if _, err := repo.DeleteOlderThan(context.Background(), time.Now()); err == nil {
		t.Fatal("expected an error when the row count is unavailable")
	}
}

func TestDeleteOlderThanQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM alert_history").
		WillReturnError(errors.New("connection reset"))

	if _, err := repo.DeleteOlderThan(context.Background(), time.Now()); err == nil {
		t.Fatal("expected the exec error to propagate")
	}
}
