package forecast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

// SeriesState is the tail of one (store, product) series kept for lag features.
type SeriesState struct {
	LastDate time.Time `json:"last_date"`
	Recent   []float64 `json:"recent"`
	Mean     float64   `json:"mean"`
}

// Metrics is the holdout evaluation of a trained forest.
type Metrics struct {
	MAE            float64 `json:"mae"`
	RMSE           float64 `json:"rmse"`
	TrainSamples   int     `json:"train_samples"`
	HoldoutSamples int     `json:"holdout_samples"`
}

// Model is an immutable trained forest. Fields are unexported and never written
// after Train or UnmarshalJSON returns, so a *Model may be shared across goroutines.
type Model struct {
	version      string
	trainedAt    time.Time
	params       Params
	trees        []Tree
	vocab        features.Vocabulary
	calendar     features.Calendar
	series       map[string]SeriesState
	productMeans map[string]float64
	metrics      Metrics
}

func (m *Model) Version() string      { return m.version }
func (m *Model) TrainedAt() time.Time { return m.trainedAt }
func (m *Model) Seed() int64          { return m.params.Seed }
func (m *Model) Params() Params       { return m.params }
func (m *Model) Metrics() Metrics     { return m.metrics }
func (m *Model) NumTrees() int        { return len(m.trees) }

// Trained reports whether the handle can serve predictions.
func (m *Model) Trained() bool { return m != nil && len(m.trees) > 0 }

// Stores returns the store IDs seen in training.
func (m *Model) Stores() []string { return append([]string(nil), m.vocab.Stores...) }

// Products returns the products seen in training.
func (m *Model) Products() []string { return append([]string(nil), m.vocab.Products...) }

// Knows reports whether both the store and the product were seen in training.
func (m *Model) Knows(storeID, product string) bool {
	if !m.Trained() {
		return false
	}
	_, okStore := m.vocab.StoreCode(storeID)
	_, okProduct := m.vocab.ProductCode(product)
	return okStore && okProduct
}

type modelJSON struct {
	Version      string                 `json:"version"`
	TrainedAt    time.Time              `json:"trained_at"`
	Params       Params                 `json:"params"`
	Trees        []Tree                 `json:"trees"`
	Vocabulary   features.Vocabulary    `json:"vocabulary"`
	Calendar     features.Calendar      `json:"calendar"`
	Series       map[string]SeriesState `json:"series"`
	ProductMeans map[string]float64     `json:"product_means"`
	Metrics      Metrics                `json:"metrics"`
}

func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelJSON{
		Version:      m.version,
		TrainedAt:    m.trainedAt,
		Params:       m.params,
		Trees:        m.trees,
		Vocabulary:   m.vocab,
		Calendar:     m.calendar,
		Series:       m.series,
		ProductMeans: m.productMeans,
		Metrics:      m.metrics,
	})
}

func (m *Model) UnmarshalJSON(data []byte) error {
	var w modelJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	for i, t := range w.Trees {
		for j, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Left <= j || n.Right <= j || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) ||
				n.Feature < 0 || n.Feature >= int(features.NumColumns) {
				return fmt.Errorf("decode model: tree %d node %d is malformed", i, j)
			}
		}
	}
	*m = Model{
		version:      w.Version,
		trainedAt:    w.TrainedAt,
		params:       w.Params,
		trees:        w.Trees,
		vocab:        w.Vocabulary,
		calendar:     w.Calendar,
		series:       w.Series,
		productMeans: w.ProductMeans,
		metrics:      w.Metrics,
	}
	return nil
}
