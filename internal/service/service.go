package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/cache"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	generationKey  = "loans:gen"
	listKeyPrefix  = "loans:list:"
	defaultListTTL = time.Minute
)

// LoanStore is the persistence the service depends on
type LoanStore interface {
	CreateLoan(ctx context.Context, loan *models.Loan) error
	ListLoans(ctx context.Context) ([]models.Loan, error)
	Ping(ctx context.Context) error
}

// ValidationError reports which request fields were rejected
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid loan request: %s", strings.Join(e.Fields, ", "))
}

// Service handles business logic
type Service struct {
	repo     LoanStore
	log      *logrus.Logger
	validate *validator.Validate
	cache    cache.Cache // nil disables list caching
	listTTL  time.Duration
}

// Option configures optional Service behaviour
type Option func(*Service)

// WithCache caches list responses in c for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.listTTL = ttl
		}
	}
}

// NewService initializes a new service
func NewService(repo LoanStore, log *logrus.Logger, opts ...Option) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("jsonarray", isJSONArray); err != nil {
		panic(err)
	}

	s := &Service{repo: repo, log: log, validate: v, listTTL: defaultListTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLoan validates the request and stores it as a new loan
func (s *Service) CreateLoan(ctx context.Context, req *models.CreateLoanRequest) (*models.Loan, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return nil, &ValidationError{Fields: fields}
		}
		return nil, fmt.Errorf("failed to validate loan: %w", err)
	}

	loan := req.ToLoan()
	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}
	s.bumpGeneration(ctx)

	s.log.WithFields(logrus.Fields{"loan_id": loan.ID, "term": loan.Term}).Info("Loan saved")
	return loan, nil
}

// ListLoans returns every stored loan, from cache when possible
func (s *Service) ListLoans(ctx context.Context) ([]models.Loan, error) {
	if s.cache == nil {
		return s.repo.ListLoans(ctx)
	}

	key, err := s.listKey(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Loan cache unavailable, reading from storage")
		return s.repo.ListLoans(ctx)
	}
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.WithError(err).Warn("Failed to read cached loans")
	} else if ok {
		var loans []models.Loan
		if err := json.Unmarshal([]byte(cached), &loans); err == nil {
			return loans, nil
		}
		s.log.WithField("key", key).Warn("Discarding undecodable cached loans")
	}

	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(loans)
	if err == nil {
		err = s.cache.Set(ctx, key, string(encoded), s.listTTL)
	}
	if err != nil {
		s.log.WithError(err).Warn("Failed to cache loans")
	}
	return loans, nil
}

// Ping checks storage reachability
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// listKey names the cached list for the current generation
func (s *Service) listKey(ctx context.Context) (string, error) {
	gen, ok, err := s.cache.Get(ctx, generationKey)
	if err != nil {
		return "", err
	}
	if !ok {
		gen = "0"
	}
	return listKeyPrefix + gen, nil
}

// bumpGeneration moves readers to a new list key and drops the old one
func (s *Service) bumpGeneration(ctx context.Context) {
	if s.cache == nil {
		return
	}
	previous, err := s.listKey(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read loan cache generation")
	}
	if _, err := s.cache.Incr(ctx, generationKey); err != nil {
		s.log.WithError(err).Error("Failed to invalidate cached loans")
		return
	}
	if previous == "" {
		return
	}
	if err := s.cache.Delete(ctx, previous); err != nil {
		s.log.WithError(err).WithField("key", previous).Warn("Failed to drop stale cached loans")
	}
}

// isJSONArray accepts raw JSON holding an array, possibly empty
func isJSONArray(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(json.RawMessage)
	if !ok {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}

// IsValidation reports whether err came from request validation
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

var _ LoanStore = (*repository.Repository)(nil)
