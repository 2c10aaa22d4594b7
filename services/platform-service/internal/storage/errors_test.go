package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsConflict(t *testing.T) {
	for _, code := range []string{"23505", "23P01"} {
		err := fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: code})
		if !IsConflict(err) {
			t.Fatalf("pg error %s should be a conflict", code)
		}
	}
	if IsConflict(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation is not a slot conflict")
	}
	if IsConflict(errors.New("connection reset")) {
		t.Fatal("plain error is not a conflict")
	}
	if IsConflict(nil) {
		t.Fatal("nil is not a conflict")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Fatal("pgx.ErrNoRows should be not-found")
	}
	if !IsNotFound(fmt.Errorf("load business: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped pgx.ErrNoRows should be not-found")
	}
	if IsNotFound(errors.New("timeout")) {
		t.Fatal("unrelated error is not not-found")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("23505 should be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23P01"}) {
		t.Fatal("exclusion violation is not a unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil is not a unique violation")
	}
}
