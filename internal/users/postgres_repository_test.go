package users

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	created := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, last_name, email, phone, blocked, admin, created_at").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "last_name", "email", "phone", "blocked", "admin", "created_at"}).
			AddRow("u-1", "Ana", "Pérez", "ana@example.com", "+5491155550000", false, false, created))

	u, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.FullName() != "Ana Pérez" {
		t.Errorf("unexpected full name: %s", u.FullName())
	}
	if u.Blocked {
		t.Error("user should not be blocked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByIDMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)

	mock.ExpectQuery("SELECT id, name, last_name").
		WithArgs("u-miss").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "u-miss"); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
