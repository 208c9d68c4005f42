package tree

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gomech/geom"
)

func collect(t *testing.T, idx Index, center geom.Vec, r float64) []Candidate {
	var out []Candidate
	cur := Cursor{}
	for {
		batch, next, done, err := idx.Query(&center, r, cur)
		require.NoError(t, err)
		out = append(out, batch...)
		if done {
			break
		}
		cur = next
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func TestCellIndexFindsNeighbors(t *testing.T) {
	pos := [][]geom.Vec{
		{{1, 1, 1}, {2, 1, 1}, {8, 8, 8}},
		{{1.5, 1, 1}, {5, 5, 5}},
	}
	idx := NewCellIndex(10, 4, pos)

	got := collect(t, idx, geom.Vec{1, 1, 1}, 1.2)
	assert.Equal(t, []Candidate{{0, 0}, {0, 1}, {1, 0}}, got)
}

func TestCellIndexPeriodic(t *testing.T) {
	pos := [][]geom.Vec{{{0.2, 5, 5}, {9.8, 5, 5}}}
	idx := NewCellIndex(10, 5, pos)

	got := collect(t, idx, geom.Vec{0, 5, 5}, 0.5)
	assert.Equal(t, []Candidate{{0, 0}, {0, 1}}, got)
}

func TestCellIndexNonPeriodic(t *testing.T) {
	pos := [][]geom.Vec{{{0.2, 0.2, 0.2}, {9.8, 9.8, 9.8}}}
	idx := NewCellIndex(0, 4, pos)

	got := collect(t, idx, geom.Vec{0, 0, 0}, 1)
	assert.Equal(t, []Candidate{{0, 0}}, got)
}

func TestCellIndexResume(t *testing.T) {
	// A radius spanning the whole box visits every occupied cell, one batch
	// at a time, and signals exhaustion distinctly from an error.
	pos := [][]geom.Vec{{{1, 1, 1}, {9, 9, 9}, {5, 5, 5}}}
	idx := NewCellIndex(10, 4, pos)

	center := geom.Vec{5, 5, 5}
	var n, batches int
	cur := Cursor{}
	for {
		batch, next, done, err := idx.Query(&center, 20, cur)
		require.NoError(t, err)
		n += len(batch)
		if len(batch) > 0 {
			batches++
		}
		if done {
			break
		}
		cur = next
	}
	assert.Equal(t, 3, n)
	assert.GreaterOrEqual(t, batches, 2)
}

func TestCellIndexNegativeRadius(t *testing.T) {
	idx := NewCellIndex(10, 4, [][]geom.Vec{{{1, 1, 1}}})
	center := geom.Vec{1, 1, 1}
	_, _, _, err := idx.Query(&center, -1, Cursor{})
	assert.ErrorIs(t, err, ErrIndex)
}

func TestCellIndexNoDuplicatesLargeRadius(t *testing.T) {
	// When the search sphere wraps most of the box, each receptor must still
	// appear exactly once.
	pos := [][]geom.Vec{{{1, 1, 1}, {3, 3, 3}, {7, 7, 7}, {9, 1, 5}}}
	idx := NewCellIndex(10, 3, pos)

	got := collect(t, idx, geom.Vec{5, 5, 5}, 9)
	seen := map[Candidate]int{}
	for _, c := range got {
		seen[c]++
	}
	for c, n := range seen {
		assert.Equal(t, 1, n, "candidate %v duplicated", c)
	}
	assert.Len(t, got, 4)
}
