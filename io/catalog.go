package io

import (
	"fmt"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/gomech"
)

// Catalog column layouts. Both catalogs are whitespace-separated text with
// one particle per row; lines starting with '#' are comments.
//
// Sources:   id x y z vx vy vz mass hsml num_ngb dens_near t_form dt
// Receptors: id x y z vx vy vz mass hsml density energy z_0 [z_1 ...]
const (
	sourceCols   = 13
	receptorCols = 12 // with one species column
)

// ReadSources reads a source catalog. All quantities are in code units.
func ReadSources(file string) ([]gomech.Source, error) {
	colIdxs := make([]int, sourceCols)
	for i := range colIdxs {
		colIdxs[i] = i
	}
	cols, err := table.ReadTable(file, colIdxs, nil)
	if err != nil {
		return nil, fmt.Errorf("reading source catalog '%s': %w", file, err)
	}

	n := len(cols[0])
	srcs := make([]gomech.Source, n)
	for i := 0; i < n; i++ {
		s := &srcs[i]
		s.ID = int64(cols[0][i])
		for k := 0; k < 3; k++ {
			s.Pos[k] = cols[1+k][i]
			s.Vel[k] = cols[4+k][i]
		}
		s.Mass = cols[7][i]
		s.Hsml = cols[8][i]
		s.NumNgb = cols[9][i]
		s.DensNear = cols[10][i]
		s.FormationTime = cols[11][i]
		s.Dt = cols[12][i]
	}
	return srcs, nil
}

// ReadReceptors reads a receptor catalog carrying numSpecies abundance
// columns after the energy column.
func ReadReceptors(file string, numSpecies int) ([]gomech.Receptor, error) {
	if numSpecies < 1 {
		return nil, fmt.Errorf("receptor catalog needs at least one " +
			"species column")
	}
	colIdxs := make([]int, receptorCols-1+numSpecies)
	for i := range colIdxs {
		colIdxs[i] = i
	}
	cols, err := table.ReadTable(file, colIdxs, nil)
	if err != nil {
		return nil, fmt.Errorf("reading receptor catalog '%s': %w", file, err)
	}

	n := len(cols[0])
	recs := make([]gomech.Receptor, n)
	for i := 0; i < n; i++ {
		r := &recs[i]
		r.ID = int64(cols[0][i])
		for k := 0; k < 3; k++ {
			r.Pos[k] = cols[1+k][i]
			r.Vel[k] = cols[4+k][i]
		}
		r.Mass = cols[7][i]
		r.Hsml = cols[8][i]
		r.Density = cols[9][i]
		r.Energy = cols[10][i]
		r.Z = make([]float64, numSpecies)
		for k := 0; k < numSpecies; k++ {
			r.Z[k] = cols[11+k][i]
		}
	}
	return recs, nil
}
