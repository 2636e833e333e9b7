package userdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"messaging-service/internal/adapter/db/sqlexec"
	domain "messaging-service/internal/domain/userdata"
	apperrors "messaging-service/pkg/errors"
)

// MinProcessedAge is the exclusive lower bound used by BatchProcessing.
const MinProcessedAge = 25

// OlderThanAge is the threshold of the second query run by FetchConcurrently.
const OlderThanAge = 40

const (
	allUsersQuery   = "SELECT user_id, name, email, age FROM user_data ORDER BY user_id"
	olderUsersQuery = "SELECT user_id, name, email, age FROM user_data WHERE age > ? ORDER BY user_id"
)

// Store is the user_data storage used by the usecase.
type Store interface {
	Insert(ctx context.Context, row domain.SeedRow) (bool, error)
	StreamUsersInBatches(ctx context.Context, batchSize int) iter.Seq2[domain.Batch, error]
	StreamUserAges(ctx context.Context) iter.Seq2[float64, error]
}

// Querier runs ad-hoc read queries.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]sqlexec.Row, error)
}

// ConcurrentResult holds the outcome of each query run by FetchConcurrently.
// A failed query leaves its rows nil and records its error; the other slot is unaffected.
type ConcurrentResult struct {
	AllUsers      []sqlexec.Row
	AllUsersErr   error
	OlderUsers    []sqlexec.Row
	OlderUsersErr error
}

// SeedReport counts the outcome of a CSV import.
type SeedReport struct {
	Inserted int
	Skipped  int // Skipped rows had an email that already exists
	Invalid  int
}

// Usecase implements the user_data processing operations.
type Usecase struct {
	store    Store
	query    Querier
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new Usecase.
func New(store Store, query Querier, log *zap.Logger) *Usecase {
	return &Usecase{store: store, query: query, log: log, validate: validator.New()}
}

// BatchProcessing walks every batch and yields the users older than MinProcessedAge.
func (uc *Usecase) BatchProcessing(ctx context.Context, batchSize int) iter.Seq2[domain.UserRecord, error] {
	return func(yield func(domain.UserRecord, error) bool) {
		for batch, err := range uc.store.StreamUsersInBatches(ctx, batchSize) {
			if err != nil {
				yield(domain.UserRecord{}, err)
				return
			}
			for _, rec := range batch {
				if rec.Age <= MinProcessedAge {
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// AverageAge consumes the age stream once and returns the mean age, or 0 for an empty table.
func (uc *Usecase) AverageAge(ctx context.Context) (float64, error) {
	var (
		sum   float64
		count int
	)
	for age, err := range uc.store.StreamUserAges(ctx) {
		if err != nil {
			uc.log.Error("failed to compute average age", zap.Error(err))
			return 0, err
		}
		sum += age
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// FetchConcurrently runs the "all users" and "older users" queries at the same time.
// The returned error is the first failure, if any; both slots of the result are always populated.
func (uc *Usecase) FetchConcurrently(ctx context.Context) (ConcurrentResult, error) {
	var (
		res ConcurrentResult
		g   errgroup.Group
	)

	g.Go(func() error {
		res.AllUsers, res.AllUsersErr = uc.query.Query(ctx, allUsersQuery)
		return res.AllUsersErr
	})
	g.Go(func() error {
		res.OlderUsers, res.OlderUsersErr = uc.query.Query(ctx, olderUsersQuery, OlderThanAge)
		return res.OlderUsersErr
	})

	err := g.Wait()
	if err != nil {
		uc.log.Warn("concurrent fetch finished with errors",
			zap.NamedError("all_users_error", res.AllUsersErr),
			zap.NamedError("older_users_error", res.OlderUsersErr))
	}
	return res, err
}

var seedColumns = []string{"name", "email", "age"}

// Seed imports CSV rows with a name,email,age header. Rows that fail validation are
// counted and skipped; rows whose email already exists are counted as skipped.
func (uc *Usecase) Seed(ctx context.Context, r io.Reader) (SeedReport, error) {
	var report SeedReport

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return report, apperrors.NewValidationError("csv", "file is empty")
	}
	if err != nil {
		return report, fmt.Errorf("failed to read csv header: %w", err)
	}

	index, err := headerIndex(header)
	if err != nil {
		return report, err
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return report, fmt.Errorf("failed to read csv line %d: %w", line, err)
			}
			uc.log.Warn("malformed csv line", zap.Int("line", line), zap.Error(err))
			report.Invalid++
			continue
		}

		row, err := uc.parseRow(record, index)
		if err != nil {
			uc.log.Warn("invalid seed row", zap.Int("line", line), zap.Error(err))
			report.Invalid++
			continue
		}

		inserted, err := uc.store.Insert(ctx, row)
		if err != nil {
			return report, err
		}
		if inserted {
			report.Inserted++
		} else {
			report.Skipped++
		}
	}

	uc.log.Info("seed finished",
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("invalid", report.Invalid))
	return report, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range seedColumns {
		if _, ok := index[col]; !ok {
			return nil, apperrors.NewValidationError("csv", fmt.Sprintf("missing column %q", col))
		}
	}
	return index, nil
}

func (uc *Usecase) parseRow(record []string, index map[string]int) (domain.SeedRow, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	age, err := strconv.ParseFloat(field("age"), 64)
	if err != nil {
		return domain.SeedRow{}, fmt.Errorf("age %q is not a number", field("age"))
	}

	row := domain.SeedRow{
		Name:  field("name"),
		Email: field("email"),
		Age:   age,
	}
	if err := uc.validate.Struct(row); err != nil {
		return domain.SeedRow{}, err
	}
	return row, nil
}
