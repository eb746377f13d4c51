//go:build purego || js

package pyguide

// medianFilter3 returns a 3x3 median filtered copy of im with replicated
// borders.
func medianFilter3(im *Image) *Image {
	rows, cols := im.rows, im.cols
	out := NewImage(rows, cols)
	for r := 0; r < rows; r++ {
		r0, r2 := r-1, r+1
		if r0 < 0 {
			r0 = 0
		}
		if r2 >= rows {
			r2 = rows - 1
		}
		row0 := im.row(r0)
		row1 := im.row(r)
		row2 := im.row(r2)
		dst := out.row(r)
		for c := 0; c < cols; c++ {
			c0, c2 := c-1, c+1
			if c0 < 0 {
				c0 = 0
			}
			if c2 >= cols {
				c2 = cols - 1
			}
			a := row0[c0]
			b := row0[c]
			cc := row0[c2]
			d := row1[c0]
			e := row1[c]
			f := row1[c2]
			g := row2[c0]
			h := row2[c]
			ii := row2[c2]
			// Sorting network for median of 9 (Bose-Nelson)
			if a > b {
				a, b = b, a
			}
			if d > e {
				d, e = e, d
			}
			if g > h {
				g, h = h, g
			}
			if a > d {
				a, d = d, a
			}
			if b > e {
				b, e = e, b
			}
			if d > g {
				d, g = g, d
			}
			if e > h {
				e, h = h, e
			}
			if cc > f {
				cc, f = f, cc
			}
			if f > ii {
				f, ii = ii, f
			}
			if cc > f {
				cc, f = f, cc
			}
			if a > cc {
				a, cc = cc, a
			}
			if b > f {
				b, f = f, b
			}
			if d > cc {
				d, cc = cc, d
			}
			if e > f {
				e, f = f, e
			}
			if d > b {
				d, b = b, d
			}
			if g > cc {
				g, cc = cc, g
			}
			if e > cc {
				e, cc = cc, e
			}
			if e > d {
				e, d = d, e
			}
			_, _, _, _, _, _, _, _ = a, b, cc, d, f, g, h, ii
			dst[c] = e
		}
	}
	return out
}
