package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

// minHoldoutSamples is the dataset size below which everything is used for training.
const minHoldoutSamples = 10

// Train fits a new forest on the history and returns a fresh handle.
func Train(ctx context.Context, h features.History, p Params) (*Model, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, domain.InvalidArgument(fmt.Sprintf("train model: %v", err))
	}

	ds, err := features.Build(h)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	x := make([][]float64, len(ds.Samples))
	y := make([]float64, len(ds.Samples))
	for i, s := range ds.Samples {
		x[i] = s.Vector.Values()
		y[i] = s.Label
	}

	trainIdx, holdIdx := splitHoldout(len(x), p.HoldoutFraction, p.Seed)

	started := time.Now()
	trees, err := fitForest(ctx, x, y, trainIdx, p)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	m := &Model{
		trainedAt:    time.Now().UTC(),
		params:       p,
		trees:        trees,
		vocab:        ds.Vocabulary,
		calendar:     ds.Calendar,
		series:       make(map[string]SeriesState, len(ds.Series)),
		productMeans: make(map[string]float64),
	}
	m.version = fmt.Sprintf("rf-%d-%s", p.Seed, m.trainedAt.Format("20060102T150405Z"))
	m.metrics = evaluate(trees, x, y, holdIdx)
	m.metrics.TrainSamples = len(trainIdx)

	byProduct := make(map[string][]float64)
	for _, k := range features.SortedKeys(ds.Series) {
		units := features.Units(ds.Series[k])
		obs := ds.Series[k]
		tail := units
		if len(tail) > p.RecentDays {
			tail = tail[len(tail)-p.RecentDays:]
		}
		m.series[k.String()] = SeriesState{
			LastDate: obs[len(obs)-1].Date,
			Recent:   append([]float64(nil), tail...),
			Mean:     features.Mean(units),
		}
		byProduct[k.Product] = append(byProduct[k.Product], units...)
	}
	for product, units := range byProduct {
		m.productMeans[product] = features.Mean(units)
	}

	log.Info().
		Str("version", m.version).
		Int("trees", len(trees)).
		Int("samples", len(x)).
		Float64("mae", m.metrics.MAE).
		Float64("rmse", m.metrics.RMSE).
		Dur("duration", time.Since(started)).
		Msg("Model trained")

	return m, nil
}

// splitHoldout shuffles row indexes with the model seed and reserves the leading
// fraction for evaluation. Both halves are returned in ascending order.
func splitHoldout(n int, fraction float64, seed int64) (train, holdout []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	k := 0
	if n >= minHoldoutSamples {
		k = int(float64(n) * fraction)
	}
	holdout = append([]int(nil), perm[:k]...)
	train = append([]int(nil), perm[k:]...)
	sort.Ints(holdout)
	sort.Ints(train)
	return train, holdout
}

// fitForest grows NumTrees trees on bootstrap samples. Tree i draws from its own
// source seeded with Seed+i, so scheduling order does not affect the result.
func fitForest(ctx context.Context, x [][]float64, y []float64, rows []int, p Params) ([]Tree, error) {
	trees := make([]Tree, p.NumTrees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(p.Seed + int64(i)))
			sample := make([]int, len(rows))
			for j := range sample {
				sample[j] = rows[rng.Intn(len(rows))]
			}
			trees[i] = fitTree(x, y, sample, p, rng)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}

func evaluate(trees []Tree, x [][]float64, y []float64, rows []int) Metrics {
	m := Metrics{HoldoutSamples: len(rows)}
	if len(rows) == 0 {
		return m
	}
	var absSum, sqSum float64
	for _, r := range rows {
		pred := 0.0
		for _, t := range trees {
			pred += t.Predict(x[r])
		}
		pred /= float64(len(trees))
		diff := pred - y[r]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}
	n := float64(len(rows))
	m.MAE = absSum / n
	m.RMSE = math.Sqrt(sqSum / n)
	return m
}
