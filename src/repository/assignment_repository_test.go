package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAssignmentRepositoryActiveForQuery(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &AssignmentRepository{db: mockDB, now: time.Now}

	rows := sqlmock.NewRows([]string{"id", "symbol", "strategy_name", "parameters", "active"}).
		AddRow(7, "005930", "rsi", `{"period":9}`, true)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "strategy_configs" WHERE symbol = $1 AND active = $2 ORDER BY updated_at DESC, id DESC LIMIT $3`)).
		WithArgs("005930", true, 1).
		WillReturnRows(rows)

	got, err := repo.ActiveFor(context.Background(), "005930")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.StrategyName != "rsi" {
		t.Fatalf("unexpected assignment: %+v", got)
	}
	params, err := got.Params()
	if err != nil {
		t.Fatalf("unexpected params error: %v", err)
	}
	if params["period"] != float64(9) {
		t.Fatalf("unexpected params: %v", params)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestAssignmentRepositoryAssignKeepsSingleActiveRow(t *testing.T) {
	db := newSQLiteDB(t)
	repo := (&AssignmentRepository{}).WithDB(db)
	ctx := context.Background()

	tick := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	_, err := repo.Assign(ctx, "005930", "rsi", map[string]any{"period": 14})
	require.NoError(t, err)
	_, err = repo.Assign(ctx, "005930", "bollinger", map[string]any{"period": 20, "std_dev": 2.5})
	require.NoError(t, err)
	_, err = repo.Assign(ctx, "000660", "ma_crossover", nil)
	require.NoError(t, err)

	active, err := repo.ActiveFor(ctx, "005930")
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, "bollinger", active.StrategyName)

	all, err := repo.Active(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	none, err := repo.ActiveFor(ctx, "035720")
	require.NoError(t, err)
	require.Nil(t, none)
}
