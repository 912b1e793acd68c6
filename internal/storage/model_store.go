package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
)

// ModelStore persists trained model handles as JSON under one key.
type ModelStore struct {
	objects ObjectStorage
	key     string
}

func NewModelStore(objects ObjectStorage, key string) *ModelStore {
	return &ModelStore{objects: objects, key: key}
}

// NewModelStoreFromConfig picks the local or S3 backend.
func NewModelStoreFromConfig(cfg config.ModelConfig) (*ModelStore, error) {
	switch cfg.Store {
	case "", "local":
		dir, file := filepath.Split(cfg.LocalPath)
		if file == "" {
			return nil, fmt.Errorf("model local path %q has no file name", cfg.LocalPath)
		}
		return NewModelStore(NewLocalStorage(dir), file), nil
	case "s3", "minio":
		s3, err := NewS3Storage(S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return NewModelStore(s3, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown model store %q", cfg.Store)
	}
}

// Load returns the stored handle, or a ModelNotTrained error when nothing was saved yet.
func (s *ModelStore) Load(ctx context.Context) (*forecast.Model, error) {
	data, err := s.objects.GetObject(ctx, s.key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, domain.ModelNotTrained()
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	var m forecast.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	log.Info().Str("key", s.key).Str("version", m.Version()).Msg("Model loaded")
	return &m, nil
}

func (s *ModelStore) Save(ctx context.Context, m *forecast.Model) error {
	if !m.Trained() {
		return domain.ModelNotTrained()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := s.objects.PutObject(ctx, s.key, data); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	log.Info().Str("key", s.key).Str("version", m.Version()).Int("bytes", len(data)).Msg("Model saved")
	return nil
}
