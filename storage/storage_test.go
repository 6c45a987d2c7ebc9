package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

func stores(t *testing.T) map[string]Storage {
	t.Helper()

	bunt, err := FromMemory(log.Discard())
	require.NoError(t, err)

	sql, err := FromSQL(
		sqlite.Open(filepath.Join(t.TempDir(), "artifacts.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunt.Close()
		_ = sql.Close()
	})

	return map[string]Storage{"buntdb": bunt, "sql": sql}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := service.Artifact{
				Name:      "AAPL_spectrogram_1",
				Symbol:    "AAPL",
				Kind:      "spectrogram",
				CreatedAt: base,
				Data:      []byte{0x89, 'P', 'N', 'G'},
			}
			second := first
			second.Name = "AAPL_spectrogram_2"
			second.CreatedAt = base.Add(time.Minute)
			second.Data = []byte{1, 2, 3}
			other := service.Artifact{
				Name:      "MSFT_timeseries_1",
				Symbol:    "MSFT",
				Kind:      "timeseries",
				CreatedAt: base.Add(2 * time.Minute),
				Data:      []byte{4},
			}

			for _, a := range []service.Artifact{first, second, other} {
				require.NoError(t, store.Save(ctx, a))
			}

			t.Run("get", func(t *testing.T) {
				got, err := store.Get(ctx, first.Name)
				require.NoError(t, err)
				require.Equal(t, first.Data, got.Data)
				require.Equal(t, "AAPL", got.Symbol)
				require.True(t, first.CreatedAt.Equal(got.CreatedAt))
			})

			t.Run("get missing", func(t *testing.T) {
				_, err := store.Get(ctx, "nope.png")
				require.True(t, errors.Is(err, ErrNotFound))
			})

			t.Run("latest", func(t *testing.T) {
				got, err := store.Latest(ctx, "AAPL", "spectrogram", "")
				require.NoError(t, err)
				require.Equal(t, second.Name, got.Name)
				require.Equal(t, second.Data, got.Data)

				_, err = store.Latest(ctx, "AAPL", "spectrogram", "x2")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("list with filters", func(t *testing.T) {
				all, err := store.Artifacts()
				require.NoError(t, err)
				require.Len(t, all, 3)

				aapl, err := store.Artifacts(WithSymbol("AAPL"), WithCreatedBeforeOrEqual(base))
				require.NoError(t, err)
				require.Equal(t, []string{first.Name}, lo.Map(aapl, func(a service.Artifact, _ int) string {
					return a.Name
				}))

				series, err := store.Artifacts(WithKind("timeseries"))
				require.NoError(t, err)
				require.Len(t, series, 1)
			})

			t.Run("save overwrites by name", func(t *testing.T) {
				updated := other
				updated.Data = []byte{9, 9}
				require.NoError(t, store.Save(ctx, updated))

				got, err := store.Get(ctx, other.Name)
				require.NoError(t, err)
				require.Equal(t, []byte{9, 9}, got.Data)
			})

			t.Run("empty name", func(t *testing.T) {
				require.Error(t, store.Save(ctx, service.Artifact{}))
			})
		})
	}
}
