package repository

import (
	"context"
	"testing"

	"autotrader/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceptionRepositoryLatest(t *testing.T) {
	repo := NewExceptionRepository().WithDB(newSQLiteDB(t))
	ctx := context.Background()

	for _, method := range []string{"Tick", "Reconcile", "Snapshot"} {
		require.NoError(t, repo.Create(ctx, &model.Exception{
			Service: "trader",
			Module:  "controller",
			Method:  method,
			Message: method + " failed",
			Level:   "error",
		}))
	}

	rows, err := repo.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Snapshot", rows[0].Method)
	assert.Equal(t, "Reconcile", rows[1].Method)

	all, err := repo.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
