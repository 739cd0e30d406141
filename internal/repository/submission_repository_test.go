package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/listing-bot/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestSubmissionRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewSubmissionRepository(mock)

	s := &domain.Submission{
		ID:     "6b1c2f0e-8d4f-4a57-9f61-0d7c2b2d9a10",
		UserID: 42,
		Kind:   domain.SubmissionKindSell,
		Data:   domain.SessionData{Title: "Кофейня", Profit: 150000},
	}
	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(s.ID, int64(42), domain.SubmissionKindSell, pgxmock.AnyArg(), false, false, domain.SubmissionStatusPending, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, domain.SubmissionStatusPending, s.Status)
	assert.False(t, s.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewSubmissionRepository(mock)

	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "submissions_pkey"})

	err := repo.Create(context.Background(), &domain.Submission{ID: "x", Kind: domain.SubmissionKindSell})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSubmissionRepository_GetByID(t *testing.T) {
	now := time.Now().UTC()
	payload, _ := json.Marshal(domain.SessionData{Title: "Кофейня", City: "Томск"})
	columns := []string{"id", "user_id", "kind", "data", "invited", "rejected_all", "status", "reject_reason", "created_at", "decided_at"}

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
		check   func(t *testing.T, s *domain.Submission)
	}{
		{
			name: "found",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(columns).
					AddRow("S1", int64(7), domain.SubmissionKindSell, payload, true, false, domain.SubmissionStatusPending, (*string)(nil), now, (*time.Time)(nil))
				mock.ExpectQuery(`SELECT`).WithArgs("S1").WillReturnRows(rows)
			},
			check: func(t *testing.T, s *domain.Submission) {
				assert.Equal(t, "S1", s.ID)
				assert.Equal(t, int64(7), s.UserID)
				assert.True(t, s.Invited)
				assert.Equal(t, "Томск", s.Data.City)
				assert.Nil(t, s.RejectReason)
			},
		},
		{
			name: "not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT`).WithArgs("S1").WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewSubmissionRepository(mock)
			tt.setup(mock)

			s, err := repo.GetByID(context.Background(), "S1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestSubmissionRepository_TransitionStatus(t *testing.T) {
	reason := "низкое качество фото"

	tests := []struct {
		name     string
		affected int64
		execErr  error
		wantErr  error
	}{
		{name: "pending wins", affected: 1},
		{name: "already decided", affected: 0, wantErr: domain.ErrAlreadyHandled},
		{name: "db failure", execErr: errors.New("connection reset"), wantErr: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewSubmissionRepository(mock)

			exp := mock.ExpectExec(`UPDATE submissions SET status`).
				WithArgs(domain.SubmissionStatusRejected, &reason, "S1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			}

			err := repo.TransitionStatus(context.Background(), "S1", domain.SubmissionStatusRejected, &reason)
			switch {
			case tt.wantErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.wantErr, domain.ErrAlreadyHandled):
				assert.ErrorIs(t, err, domain.ErrAlreadyHandled)
			default:
				assert.EqualError(t, err, tt.wantErr.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubmissionRepository_DeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewSubmissionRepository(mock)

	mock.ExpectExec(`DELETE FROM submissions`).WithArgs("S1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "S1"), domain.ErrNotFound)
}

func TestSubmissionRepository_ListPendingSell(t *testing.T) {
	mock := newMock(t)
	repo := NewSubmissionRepository(mock)

	payload, _ := json.Marshal(domain.SessionData{Title: "Опт"})
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "user_id", "kind", "data", "invited", "rejected_all", "status", "reject_reason", "created_at", "decided_at"}).
		AddRow("S1", int64(1), domain.SubmissionKindSell, payload, false, false, domain.SubmissionStatusPending, (*string)(nil), now, (*time.Time)(nil)).
		AddRow("S2", int64(2), domain.SubmissionKindSell, payload, false, true, domain.SubmissionStatusPending, (*string)(nil), now, (*time.Time)(nil))
	mock.ExpectQuery(`SELECT .* FROM submissions WHERE kind = \$1 AND status IN \(\$2\)`).
		WithArgs(domain.SubmissionKindSell, "pending").
		WillReturnRows(rows)

	kind := domain.SubmissionKindSell
	items, err := repo.List(context.Background(), SubmissionFilter{
		Kind:     &kind,
		Statuses: []domain.SubmissionStatus{domain.SubmissionStatusPending},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[1].RejectedAll)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySubmissionRepository_TransitionOnce(t *testing.T) {
	repo := NewMemorySubmissionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.Submission{ID: "S1", Kind: domain.SubmissionKindSell}))

	require.NoError(t, repo.TransitionStatus(ctx, "S1", domain.SubmissionStatusPublished, nil))
	assert.ErrorIs(t, repo.TransitionStatus(ctx, "S1", domain.SubmissionStatusRejected, nil), domain.ErrAlreadyHandled)

	got, err := repo.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusPublished, got.Status)
	require.NotNil(t, got.DecidedAt)

	require.NoError(t, repo.RevertToPending(ctx, "S1", domain.SubmissionStatusPublished))
	got, err = repo.GetByID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusPending, got.Status)
	assert.Nil(t, got.DecidedAt)
}

func TestMemorySubmissionRepository_ListFilters(t *testing.T) {
	repo := NewMemorySubmissionRepository()
	ctx := context.Background()
	base := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &domain.Submission{ID: "a", Kind: domain.SubmissionKindSell, CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &domain.Submission{ID: "b", Kind: domain.SubmissionKindBuy, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, &domain.Submission{ID: "c", Kind: domain.SubmissionKindSell, CreatedAt: base.Add(2 * time.Second)}))

	kind := domain.SubmissionKindSell
	items, err := repo.List(ctx, SubmissionFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
}
