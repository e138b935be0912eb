package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDB implements DB.
type MockDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return errRow{err: pgx.ErrNoRows}
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

func TestReportColumnsMatchFields(t *testing.T) {
	cols := reportColumns()
	fields := reportFields(&domain.TaxReport{})

	assert.Len(t, cols, 7+22+3)
	assert.Equal(t, len(cols), len(fields))
	assert.Equal(t, "id", cols[0])
	assert.Equal(t, "w2_wages", cols[7])
	assert.Equal(t, "total_tax_liability", cols[7+21])
	assert.Equal(t, "updated_at", cols[len(cols)-1])
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$3, $4, $5", placeholders(3, 3))
}

func TestGetTaxReport_NotFound(t *testing.T) {
	s := NewStoreWithDB(&MockDB{})

	_, err := s.GetTaxReport(context.Background(), "u1", "r1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateTaxReport_Query(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &MockDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL, gotArgs = sql, args
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	s := NewStoreWithDB(db)

	r := &domain.TaxReport{ID: "r1", UserID: "u1", Name: "n", TaxYear: 2024}
	require.NoError(t, s.UpdateTaxReport(context.Background(), r))

	assert.True(t, strings.HasSuffix(gotSQL, "WHERE id = $1 AND user_id = $2"))
	assert.Contains(t, gotSQL, "w2_wages = $8")
	assert.Contains(t, gotSQL, "updated_at = $31")
	assert.Len(t, gotArgs, 31)
	assert.NotContains(t, gotSQL, "created_at")
}

func TestDeleteTaxReport_NoRows(t *testing.T) {
	db := &MockDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("DELETE 0"), nil
		},
	}

	err := NewStoreWithDB(db).DeleteTaxReport(context.Background(), "u1", "r1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRemoteCalculator(t *testing.T) {
	t.Run("runs procedure for owned report", func(t *testing.T) {
		var gotArgs []any
		db := &MockDB{
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				assert.Contains(t, sql, "calculate_tax_report(id)")
				gotArgs = args
				return pgconn.NewCommandTag("SELECT 1"), nil
			},
		}

		require.NoError(t, NewRemoteCalculator(db).Calculate(context.Background(), "u1", "r1"))
		assert.Equal(t, []any{"r1", "u1"}, gotArgs)
	})

	t.Run("missing report", func(t *testing.T) {
		db := &MockDB{
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("SELECT 0"), nil
			},
		}

		err := NewRemoteCalculator(db).Calculate(context.Background(), "u1", "r1")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("procedure error", func(t *testing.T) {
		db := &MockDB{
			ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("no tax table for 2031")
			},
		}

		err := NewRemoteCalculator(db).Calculate(context.Background(), "u1", "r1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrNotFound))
		assert.Contains(t, err.Error(), "no tax table for 2031")
	})
}
