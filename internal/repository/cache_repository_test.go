package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
)

func TestCacheRepositoryNilClientDegrades(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())

	var dest []string
	err := repo.Get(context.Background(), "roster:exam:1", &dest)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(context.Background(), "roster:exam:1", []string{"ta-1"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "roster:exam:*"))
	require.NoError(t, repo.Close())
}
