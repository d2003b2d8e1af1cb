package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/cache"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	mu        sync.Mutex
	loans     []models.Loan
	listCalls int
	createErr error
	listErr   error
}

func (f *fakeStore) CreateLoan(_ context.Context, loan *models.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	loan.ID = int64(len(f.loans) + 1)
	loan.Timestamp = "2026-01-02T03:04:05.000Z"
	f.loans = append(f.loans, *loan)
	return nil
}

func (f *fakeStore) ListLoans(context.Context) ([]models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Loan, len(f.loans))
	copy(out, f.loans)
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func ptr[T any](v T) *T {
	return &v
}

func validRequest() *models.CreateLoanRequest {
	return &models.CreateLoanRequest{
		Amount:       ptr(10000.0),
		InterestRate: ptr(5.0),
		Term:         ptr(12),
		ExtraPayment: ptr(0.0),
		Result: &models.LoanResultRequest{
			MonthlyPayment: ptr(856.07),
			TotalInterest:  ptr(272.84),
			PayoffMonths:   ptr(12),
			Schedule:       json.RawMessage(`[{"month":1,"balance":9143.93}]`),
		},
	}
}

func TestCreateLoan(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, testLogger())

	loan, err := svc.CreateLoan(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loan.ID != 1 {
		t.Errorf("id = %d, want 1", loan.ID)
	}
	if loan.Amount != 10000 || loan.InterestRate != 5 || loan.Term != 12 || loan.ExtraPayment != 0 {
		t.Errorf("scalars not echoed: %+v", loan)
	}
	if loan.Result.MonthlyPayment != 856.07 || loan.Result.PayoffMonths != 12 {
		t.Errorf("result not echoed: %+v", loan.Result)
	}
	if len(store.loans) != 1 {
		t.Errorf("stored %d loans, want 1", len(store.loans))
	}
}

func TestCreateLoanValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateLoanRequest)
		field  string
	}{
		{name: "missing amount", mutate: func(r *models.CreateLoanRequest) { r.Amount = nil }, field: "amount"},
		{name: "zero amount", mutate: func(r *models.CreateLoanRequest) { r.Amount = ptr(0.0) }, field: "amount"},
		{name: "negative rate", mutate: func(r *models.CreateLoanRequest) { r.InterestRate = ptr(-1.0) }, field: "interestRate"},
		{name: "zero term", mutate: func(r *models.CreateLoanRequest) { r.Term = ptr(0) }, field: "term"},
		{name: "missing extra payment", mutate: func(r *models.CreateLoanRequest) { r.ExtraPayment = nil }, field: "extraPayment"},
		{name: "missing result", mutate: func(r *models.CreateLoanRequest) { r.Result = nil }, field: "result"},
		{name: "missing monthly payment", mutate: func(r *models.CreateLoanRequest) { r.Result.MonthlyPayment = nil }, field: "monthlyPayment"},
		{name: "missing schedule", mutate: func(r *models.CreateLoanRequest) { r.Result.Schedule = nil }, field: "schedule"},
		{name: "null schedule", mutate: func(r *models.CreateLoanRequest) { r.Result.Schedule = json.RawMessage(`null`) }, field: "schedule"},
		{name: "object schedule", mutate: func(r *models.CreateLoanRequest) { r.Result.Schedule = json.RawMessage(`{"month":1}`) }, field: "schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := NewService(store, testLogger())
			req := validRequest()
			tt.mutate(req)

			_, err := svc.CreateLoan(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 || verr.Fields[0] != tt.field {
				t.Errorf("fields = %v, want [%s]", verr.Fields, tt.field)
			}
			if len(store.loans) != 0 {
				t.Errorf("stored %d loans, want 0", len(store.loans))
			}
		})
	}
}

func TestCreateLoanAcceptsEmptySchedule(t *testing.T) {
	svc := NewService(&fakeStore{}, testLogger())
	req := validRequest()
	req.Result.Schedule = json.RawMessage(`[]`)

	if _, err := svc.CreateLoan(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateLoanStorageError(t *testing.T) {
	storeErr := errors.New("disk full")
	svc := NewService(&fakeStore{createErr: storeErr}, testLogger())

	_, err := svc.CreateLoan(context.Background(), validRequest())
	if !errors.Is(err, storeErr) {
		t.Fatalf("got %v, want %v", err, storeErr)
	}
	if IsValidation(err) {
		t.Error("storage error reported as validation error")
	}
}

func TestListLoansUsesCache(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := NewService(store, testLogger(), WithCache(cache.NewMemoryCache(), 0))

	for i := 0; i < 2; i++ {
		loans, err := svc.ListLoans(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(loans) != 0 {
			t.Fatalf("got %d loans, want 0", len(loans))
		}
	}
	if store.listCalls != 1 {
		t.Errorf("storage listed %d times, want 1", store.listCalls)
	}

	if _, err := svc.CreateLoan(ctx, validRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}
	loans, err := svc.ListLoans(ctx)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if len(loans) != 1 {
		t.Fatalf("got %d loans after create, want 1", len(loans))
	}
	if store.listCalls != 2 {
		t.Errorf("storage listed %d times, want 2", store.listCalls)
	}
}

func TestListLoansWithoutCache(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, testLogger())

	for i := 0; i < 2; i++ {
		if _, err := svc.ListLoans(context.Background()); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if store.listCalls != 2 {
		t.Errorf("storage listed %d times, want 2", store.listCalls)
	}
}

func TestListLoansStorageError(t *testing.T) {
	storeErr := errors.New("locked")
	svc := NewService(&fakeStore{listErr: storeErr}, testLogger(), WithCache(cache.NewMemoryCache(), 0))

	if _, err := svc.ListLoans(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("got %v, want %v", err, storeErr)
	}
}

func TestCreateDropsStaleCachedList(t *testing.T) {
	ctx := context.Background()
	listCache := cache.NewMemoryCache()
	svc := NewService(&fakeStore{}, testLogger(), WithCache(listCache, time.Hour))

	for i := 0; i < 50; i++ {
		if _, err := svc.ListLoans(ctx); err != nil {
			t.Fatalf("list: %v", err)
		}
		if _, err := svc.CreateLoan(ctx, validRequest()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	loans, err := svc.ListLoans(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(loans) != 50 {
		t.Errorf("got %d loans, want 50", len(loans))
	}
	// generation counter plus the current list
	if n := listCache.Len(); n != 2 {
		t.Errorf("cache holds %d entries, want 2", n)
	}
}
