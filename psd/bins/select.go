package bins

// Fractions computes, for the closed diameter range [dmin, dmax], the
// fraction of each bin's content that falls inside the range. Entries are
// in [0, 1]; bins entirely outside the range stay 0; bins straddling a
// cut-point contribute the linear fraction of their width inside it.
//
// The three conditions are evaluated in order and each overwrites the
// previous result. When both cut-points fall inside the same bin the dmax
// branch therefore wins and the weight is (dmax - lower) / width, not the
// combined fraction. Instrument-reference output depends on this ordering,
// so it must not be "fixed".
func (t Table) Fractions(dmin, dmax float64) []float64 {
	w := make([]float64, len(t))
	for i, b := range t {
		if b.Lower >= dmin && b.Upper <= dmax {
			w[i] = 1
		}
		if dmin >= b.Lower && dmin < b.Upper {
			w[i] = (b.Upper - dmin) / (b.Upper - b.Lower)
		}
		if dmax >= b.Lower && dmax < b.Upper {
			w[i] = (dmax - b.Lower) / (b.Upper - b.Lower)
		}
	}
	return w
}
