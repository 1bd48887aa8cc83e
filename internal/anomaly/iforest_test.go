package anomaly

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterWithOutlier(n int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	matrix := make([][]float64, 0, n+1)
	for i := 0; i < n; i++ {
		matrix = append(matrix, []float64{rng.Float64(), rng.Float64()})
	}
	matrix = append(matrix, []float64{25, 25})
	return matrix
}

func TestForestFitAndScorePolarity(t *testing.T) {
	matrix := clusterWithOutlier(200)
	forest := NewIsolationForest(ForestConfig{Trees: 100, Subsample: 256, Contamination: 0.01, Seed: 42})
	require.NoError(t, forest.Fit(context.Background(), matrix))

	scores, err := forest.Score(matrix)
	require.NoError(t, err)
	require.Len(t, scores, len(matrix))

	outlier := scores[len(scores)-1]
	for i, s := range scores[:len(scores)-1] {
		assert.Less(t, outlier, s, "outlier must score below inlier %d", i)
		assert.False(t, math.IsNaN(s))
		assert.Greater(t, s, -0.5)
		assert.Less(t, s, 0.5)
	}

	// Lower = more anomalous: the outlier sits below the fitted boundary
	flags, err := forest.Predict(matrix)
	require.NoError(t, err)
	assert.True(t, flags[len(flags)-1])
}

func TestForestDeterministicForFixedSeed(t *testing.T) {
	matrix := clusterWithOutlier(100)
	cfg := ForestConfig{Trees: 25, Subsample: 64, Contamination: 0.05, Seed: 42}

	a := NewIsolationForest(cfg)
	require.NoError(t, a.Fit(context.Background(), matrix))
	b := NewIsolationForest(cfg)
	require.NoError(t, b.Fit(context.Background(), matrix))

	scoresA, err := a.Score(matrix)
	require.NoError(t, err)
	scoresB, err := b.Score(matrix)
	require.NoError(t, err)
	assert.Equal(t, scoresA, scoresB)
	assert.Equal(t, a.Offset, b.Offset)

	// A different seed grows a different ensemble
	cfg.Seed = 1
	c := NewIsolationForest(cfg)
	require.NoError(t, c.Fit(context.Background(), matrix))
	scoresC, err := c.Score(matrix)
	require.NoError(t, err)
	assert.NotEqual(t, scoresA, scoresC)
}

func TestForestErrors(t *testing.T) {
	forest := NewIsolationForest(ForestConfig{Trees: 10, Subsample: 16, Contamination: 0.01, Seed: 1})

	_, err := forest.Score([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrModelNotFitted)

	err = forest.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestForestConstantData(t *testing.T) {
	// Every row identical: no attribute can split, scoring must stay finite
	matrix := make([][]float64, 50)
	for i := range matrix {
		matrix[i] = []float64{3, 3, 3}
	}
	forest := NewIsolationForest(ForestConfig{Trees: 10, Subsample: 32, Contamination: 0.1, Seed: 42})
	require.NoError(t, forest.Fit(context.Background(), matrix))

	scores, err := forest.Score(matrix)
	require.NoError(t, err)
	for _, s := range scores {
		assert.False(t, math.IsNaN(s))
		assert.False(t, math.IsInf(s, 0))
	}
}

func TestAvgPathLength(t *testing.T) {
	assert.Equal(t, 0.0, avgPathLength(0))
	assert.Equal(t, 0.0, avgPathLength(1))
	// c(2) = 2*(ln(1)+gamma) - 2*1/2 = 2*gamma - 1
	assert.InDelta(t, 2*eulerGamma-1, avgPathLength(2), 1e-12)
	// c(n) grows with n
	assert.Greater(t, avgPathLength(256), avgPathLength(32))
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}

	tests := []struct {
		p        float64
		expected float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{75, 4},
		{100, 5},
		{10, 1.4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, Percentile(values, tt.p), 1e-9, "p=%v", tt.p)
	}

	assert.True(t, math.IsNaN(Percentile(nil, 50)))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 50))
}
