package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Kind     *domain.SubmissionKind
	Statuses []domain.SubmissionStatus
	UserID   *int64
	Limit    int
	Offset   int
}

// SubmissionRepository encapsulates submission persistence.
type SubmissionRepository interface {
	Create(ctx context.Context, s *domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	// TransitionStatus moves a pending submission to a terminal status.
	// It returns domain.ErrAlreadyHandled when the submission is no longer pending.
	TransitionStatus(ctx context.Context, id string, to domain.SubmissionStatus, reason *string) error
	// RevertToPending undoes a terminal transition whose side effects failed.
	RevertToPending(ctx context.Context, id string, from domain.SubmissionStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var submissionColumns = []string{
	"id::text", "user_id", "kind", "data", "invited", "rejected_all",
	"status", "reject_reason", "created_at", "decided_at",
}

type submissionRepository struct {
	db Querier
}

// NewSubmissionRepository instantiates the postgres repository.
func NewSubmissionRepository(db Querier) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	payload, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("encode submission data: %w", err)
	}
	if s.Status == "" {
		s.Status = domain.SubmissionStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	const query = `
        INSERT INTO submissions (id, user_id, kind, data, invited, rejected_all, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err = r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.Kind,
		payload,
		s.Invited,
		s.RejectedAll,
		s.Status,
		s.CreatedAt,
	)
	return mapError(err)
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	query, args, err := psql.Select(submissionColumns...).
		From("submissions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSubmission(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *submissionRepository) TransitionStatus(ctx context.Context, id string, to domain.SubmissionStatus, reason *string) error {
	const query = `
        UPDATE submissions SET status=$1, reject_reason=$2, decided_at=NOW()
        WHERE id=$3 AND status='pending'`
	cmd, err := r.db.Exec(ctx, query, to, reason, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyHandled
	}
	return nil
}

func (r *submissionRepository) RevertToPending(ctx context.Context, id string, from domain.SubmissionStatus) error {
	const query = `
        UPDATE submissions SET status='pending', reject_reason=NULL, decided_at=NULL
        WHERE id=$1 AND status=$2`
	cmd, err := r.db.Exec(ctx, query, id, from)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *submissionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM submissions WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error) {
	builder := psql.Select(submissionColumns...).From("submissions")
	if filter.Kind != nil {
		builder = builder.Where(sq.Eq{"kind": *filter.Kind})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.UserID != nil {
		builder = builder.Where(sq.Eq{"user_id": *filter.UserID})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query, args, err := builder.
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		s       domain.Submission
		payload []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Kind,
		&payload,
		&s.Invited,
		&s.RejectedAll,
		&s.Status,
		&s.RejectReason,
		&s.CreatedAt,
		&s.DecidedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &s.Data); err != nil {
		return nil, fmt.Errorf("decode submission %s data: %w", s.ID, err)
	}
	return &s, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return err
}
