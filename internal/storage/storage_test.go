package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
)

func tinyModel(t *testing.T) *forecast.Model {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var h features.History
	for d := 0; d < 20; d++ {
		h.Sales = append(h.Sales, features.SalesRecord{
			Date: start.AddDate(0, 0, d), StoreID: "Store_A", Product: "Milk", UnitsSold: float64(10 + d%4),
		})
	}
	p := forecast.DefaultParams()
	p.NumTrees = 3
	m, err := forecast.Train(context.Background(), h, p)
	require.NoError(t, err)
	return m
}

func TestLocalModelStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewModelStoreFromConfig(config.ModelConfig{
		Store:     "local",
		LocalPath: filepath.Join(t.TempDir(), "models", "model.json"),
	})
	require.NoError(t, err)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)

	m := tinyModel(t)
	require.NoError(t, store.Save(ctx, m))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Version(), loaded.Version())
	assert.Equal(t, m.NumTrees(), loaded.NumTrees())

	day := time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)
	want, err := forecast.Predict(m, "Store_A", "Milk", 3, day)
	require.NoError(t, err)
	got, err := forecast.Predict(loaded, "Store_A", "Milk", 3, day)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveRejectsUntrainedModel(t *testing.T) {
	store := NewModelStore(NewLocalStorage(t.TempDir()), "model.json")
	assert.ErrorIs(t, store.Save(context.Background(), nil), domain.ErrModelNotTrained)
}

func TestLocalStorageMissingObject(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir()).GetObject(context.Background(), "absent.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestModelStoreConfigValidation(t *testing.T) {
	_, err := NewModelStoreFromConfig(config.ModelConfig{Store: "s3", Endpoint: "localhost:9000", Bucket: "models"})
	assert.Error(t, err)

	s, err := NewModelStoreFromConfig(config.ModelConfig{
		Store: "s3", Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "models", Key: "demand/model.json",
	})
	require.NoError(t, err)
	assert.Equal(t, "demand/model.json", s.key)

	_, err = NewModelStoreFromConfig(config.ModelConfig{Store: "gcs"})
	assert.Error(t, err)
}
