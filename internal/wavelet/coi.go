package wavelet

import (
	"gowave/domain/spectral"
)

// ConeOfInfluence computes, for each scale, the e-folding time e_j and the
// window [e_j, N·dt − e_j] free of edge effects.
func ConeOfInfluence(grid *spectral.ScaleGrid, n int, basis *Basis) *spectral.ConeOfInfluence {
	duration := float64(n) * grid.DT
	c := &spectral.ConeOfInfluence{
		Grid:     grid,
		EFolding: make([]float64, grid.Len()),
		Left:     make([]float64, grid.Len()),
		Right:    make([]float64, grid.Len()),
		N:        n,
		DT:       grid.DT,
	}
	for j, s := range grid.Scales {
		e := basis.EFolding(s)
		c.EFolding[j] = e
		c.Left[j] = e
		c.Right[j] = duration - e
	}
	return c
}
