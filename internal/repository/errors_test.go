package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "canceled", err: context.Canceled, want: KindCanceled},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: KindCanceled},
		{name: "closed handle", err: errors.New("sql: database is closed"), want: KindUnavailable},
		{name: "postgres connection", err: &pq.Error{Code: "08006"}, want: KindUnavailable},
		{name: "postgres unique", err: &pq.Error{Code: "23505"}, want: KindConstraint},
		{name: "postgres syntax", err: &pq.Error{Code: "42601"}, want: KindUnknown},
		{name: "other", err: errors.New("boom"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("service: %w", wrap("create loan", &pq.Error{Code: "23505"}))
	if got := KindOf(err); got != KindConstraint {
		t.Errorf("KindOf = %q, want %q", got, KindConstraint)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindUnknown)
	}
	if wrap("noop", nil) != nil {
		t.Error("wrap(nil) should be nil")
	}
}

func TestClassifyClosedHandle(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = db.Exec("SELECT 1")
	if err == nil {
		t.Fatal("expected error from closed handle")
	}
	if got := classify(err); got != KindUnavailable {
		t.Errorf("classify(%v) = %q, want %q", err, got, KindUnavailable)
	}
}
