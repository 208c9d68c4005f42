package tree

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gomech/geom"
)

// CellIndex is a uniform-cell index over the receptor positions of every
// rank. It is immutable after construction and safe for concurrent Query
// calls. Each Query batch corresponds to one occupied cell, so traversals
// with large search radii resume across many batches.
type CellIndex struct {
	origin   geom.Vec
	width    float64 // total width of the indexed volume
	cw       float64 // cell width
	cells    int
	periodic bool

	heads []int // first candidate in each cell, -1 if empty
	links []int // next candidate in the same cell, -1 at the end
	cands []Candidate
	pos   []geom.Vec
}

// NewCellIndex builds an index with cells^3 uniform cells from the receptor
// positions of each rank, pos[rank][index]. A positive totalWidth makes the
// index periodic over [0, totalWidth)^3; otherwise the extent is fit to the
// positions.
func NewCellIndex(totalWidth float64, cells int, pos [][]geom.Vec) *CellIndex {
	idx := &CellIndex{cells: cells}

	if totalWidth > 0 {
		idx.periodic = true
		idx.width = totalWidth
	} else {
		lo, hi := bounds(pos)
		idx.origin = lo
		// A sliver of padding keeps the max coordinate inside the last cell.
		idx.width = maxSpan(&lo, &hi) * (1 + 1e-10)
		if idx.width == 0 {
			idx.width = 1
		}
	}
	idx.cw = idx.width / float64(cells)

	n := 0
	for _, ps := range pos {
		n += len(ps)
	}
	idx.cands = make([]Candidate, 0, n)
	idx.pos = make([]geom.Vec, 0, n)
	idx.heads = make([]int, cells*cells*cells)
	idx.links = make([]int, 0, n)
	for i := range idx.heads {
		idx.heads[i] = -1
	}

	for rank, ps := range pos {
		for i := range ps {
			c := idx.cellOf(&ps[i])
			idx.links = append(idx.links, idx.heads[c])
			idx.heads[c] = len(idx.cands)
			idx.cands = append(idx.cands, Candidate{rank, i})
			idx.pos = append(idx.pos, ps[i])
		}
	}

	return idx
}

func bounds(pos [][]geom.Vec) (lo, hi geom.Vec) {
	first := true
	for _, ps := range pos {
		for i := range ps {
			for k := 0; k < 3; k++ {
				if first || ps[i][k] < lo[k] {
					lo[k] = ps[i][k]
				}
				if first || ps[i][k] > hi[k] {
					hi[k] = ps[i][k]
				}
			}
			first = false
		}
	}
	return lo, hi
}

func maxSpan(lo, hi *geom.Vec) float64 {
	m := 0.0
	for k := 0; k < 3; k++ {
		if hi[k]-lo[k] > m {
			m = hi[k] - lo[k]
		}
	}
	return m
}

func (idx *CellIndex) cellOf(p *geom.Vec) int {
	var c [3]int
	for k := 0; k < 3; k++ {
		x := p[k] - idx.origin[k]
		if idx.periodic {
			x = geom.Wrap(x, idx.width)
		}
		c[k] = int(x / idx.cw)
		if c[k] < 0 {
			c[k] = 0
		}
		if c[k] >= idx.cells {
			c[k] = idx.cells - 1
		}
	}
	return c[0] + idx.cells*(c[1]+idx.cells*c[2])
}

// cellRange returns the inclusive cell coordinate range overlapped by the
// search sphere along one axis, before wrapping.
func (idx *CellIndex) cellRange(x, r float64) (lo, hi int) {
	lo = int(math.Floor((x - r) / idx.cw))
	hi = int(math.Floor((x + r) / idx.cw))
	if hi-lo+1 >= idx.cells {
		return 0, idx.cells - 1
	}
	return lo, hi
}

// Query implements Index. One occupied overlapped cell is returned per call.
func (idx *CellIndex) Query(center *geom.Vec, radius float64, cur Cursor) (
	[]Candidate, Cursor, bool, error,
) {
	if radius < 0 {
		return nil, cur, false, fmt.Errorf("%w: negative radius %g",
			ErrIndex, radius)
	}

	var lo, hi [3]int
	for k := 0; k < 3; k++ {
		x := center[k] - idx.origin[k]
		if idx.periodic {
			x = geom.Wrap(x, idx.width)
		}
		lo[k], hi[k] = idx.cellRange(x, radius)
		if !idx.periodic {
			if lo[k] < 0 {
				lo[k] = 0
			}
			if hi[k] >= idx.cells {
				hi[k] = idx.cells - 1
			}
		}
	}

	nx := hi[0] - lo[0] + 1
	ny := hi[1] - lo[1] + 1
	nz := hi[2] - lo[2] + 1
	total := nx * ny * nz

	for n := cur.n; n < total; n++ {
		cx := wrapCell(lo[0]+n%nx, idx.cells)
		cy := wrapCell(lo[1]+(n/nx)%ny, idx.cells)
		cz := wrapCell(lo[2]+n/(nx*ny), idx.cells)
		c := cx + idx.cells*(cy+idx.cells*cz)

		var batch []Candidate
		tw := 0.0
		if idx.periodic {
			tw = idx.width
		}
		for i := idx.heads[c]; i >= 0; i = idx.links[i] {
			d := geom.Displacement(&idx.pos[i], center, tw)
			if d.Norm() <= radius {
				batch = append(batch, idx.cands[i])
			}
		}
		if len(batch) > 0 {
			return batch, Cursor{n + 1}, n+1 >= total, nil
		}
	}
	return nil, Cursor{total}, true, nil
}

func wrapCell(c, cells int) int {
	c %= cells
	if c < 0 {
		c += cells
	}
	return c
}
