package explain

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// selectionAlpha is the ridge penalty used while ranking candidate words
const selectionAlpha = 0.01

// selectFeatures picks k columns of data according to strategy
func selectFeatures(ctx context.Context, data *mat.Dense, y, w []float64, k int, strategy string) ([]int, error) {
	_, d := data.Dims()
	switch strategy {
	case SelectNone:
		return allColumns(d), nil
	case SelectForward:
		return forwardSelection(ctx, data, y, w, k)
	case SelectHighestWeights:
		return highestWeights(data, y, w, k)
	case SelectAuto, "":
		if k <= 6 {
			return forwardSelection(ctx, data, y, w, k)
		}
		return highestWeights(data, y, w, k)
	default:
		return nil, fmt.Errorf("unknown feature selection %q", strategy)
	}
}

// forwardSelection greedily adds the column that most improves the weighted R^2.
// Ties keep the lower column index.
func forwardSelection(ctx context.Context, data *mat.Dense, y, w []float64, k int) ([]int, error) {
	_, d := data.Dims()
	used := make([]int, 0, k)
	taken := make([]bool, d)

	for len(used) < k {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, bestScore := -1, math.Inf(-1)
		for col := 0; col < d; col++ {
			if taken[col] {
				continue
			}
			fit, err := weightedRidge(data, y, w, append(used, col), selectionAlpha)
			if err != nil {
				return nil, fmt.Errorf("forward selection: %w", err)
			}
			if fit.Score > bestScore {
				best, bestScore = col, fit.Score
			}
		}
		if best < 0 {
			break
		}
		used = append(used, best)
		taken[best] = true
	}
	return used, nil
}

// highestWeights fits every column once and keeps the k largest |coefficients|.
// The original row keeps every word, so coefficient times presence is the coefficient itself.
func highestWeights(data *mat.Dense, y, w []float64, k int) ([]int, error) {
	_, d := data.Dims()
	cols := allColumns(d)
	fit, err := weightedRidge(data, y, w, cols, selectionAlpha)
	if err != nil {
		return nil, fmt.Errorf("highest weights selection: %w", err)
	}
	sort.SliceStable(cols, func(a, b int) bool {
		return math.Abs(fit.Coef[cols[a]]) > math.Abs(fit.Coef[cols[b]])
	})
	return cols[:min(k, d)], nil
}

func allColumns(d int) []int {
	cols := make([]int, d)
	for i := range cols {
		cols[i] = i
	}
	return cols
}
