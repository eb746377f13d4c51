package pyguide

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func constantImage(rows, cols int, val float32) *Image {
	im := NewImage(rows, cols)
	for i := 0; i < rows; i++ {
		row := im.row(i)
		for j := range row {
			row[j] = val
		}
	}
	return im
}

func randomImage(rows, cols int, rng *rand.Rand) *Image {
	im := NewImage(rows, cols)
	for i := 0; i < rows; i++ {
		row := im.row(i)
		for j := range row {
			row[j] = float32(1000 + rng.Float64()*500)
		}
	}
	return im
}

func TestRadIndByRadSq(t *testing.T) {
	c := NewProfileCache()
	table, err := c.RadIndByRadSq(26)
	if err != nil {
		t.Fatalf("RadIndByRadSq: %v", err)
	}

	cases := []struct {
		radSq int
		want  int32
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 3},
		{5, 3}, {8, 4}, {9, 4}, {16, 5}, {25, 6},
	}
	for _, tc := range cases {
		if table[tc.radSq] != tc.want {
			t.Errorf("radInd[%d] = %d, want %d", tc.radSq, table[tc.radSq], tc.want)
		}
	}

	// the table must never decrease
	for i := 1; i < len(table); i++ {
		if table[i] < table[i-1] {
			t.Errorf("radInd[%d] = %d < radInd[%d] = %d", i, table[i], i-1, table[i-1])
		}
	}
}

func TestRadIndOfMaxRadius(t *testing.T) {
	// the entry for rad*rad must be rad+1 so a profile of radius rad
	// fits in rad+2 bins
	c := NewProfileCache()
	for rad := 2; rad <= 30; rad++ {
		table, err := c.RadIndByRadSq(rad*rad + 1)
		if err != nil {
			t.Fatalf("RadIndByRadSq(%d): %v", rad*rad+1, err)
		}
		if got := table[rad*rad]; got != int32(rad+1) {
			t.Errorf("radInd[%d] = %d, want %d", rad*rad, got, rad+1)
		}
	}
}

func TestRadIndByRadSqReturnsCopy(t *testing.T) {
	c := NewProfileCache()
	a, err := c.RadIndByRadSq(10)
	if err != nil {
		t.Fatalf("RadIndByRadSq: %v", err)
	}
	a[5] = -99
	b, err := c.RadIndByRadSq(10)
	if err != nil {
		t.Fatalf("RadIndByRadSq: %v", err)
	}
	if b[5] == -99 {
		t.Error("second call returned a slice aliasing the first")
	}
}

func TestRadIndByRadSqNegative(t *testing.T) {
	c := NewProfileCache()
	if _, err := c.RadIndByRadSq(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	if _, err := RadSqByRadInd(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRadSqByRadInd(t *testing.T) {
	got, err := RadSqByRadInd(6)
	if err != nil {
		t.Fatalf("RadSqByRadInd: %v", err)
	}
	want := []int32{0, 1, 2, 4, 9, 16}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("radSq[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRadProfConstantImage(t *testing.T) {
	im := constantImage(5, 5, 10)
	c := NewProfileCache()

	mean := make([]float64, 4)
	variance := make([]float64, 4)
	nPts := make([]int32, 4)
	totCounts, totPts, err := c.RadProf(im, nil, Pixel{I: 2, J: 2}, 2, mean, variance, nPts)
	if err != nil {
		t.Fatalf("RadProf: %v", err)
	}
	if totPts != 13 {
		t.Errorf("totPts = %d, want 13", totPts)
	}
	if totCounts != 130 {
		t.Errorf("totCounts = %g, want 130", totCounts)
	}

	wantNPts := []int32{1, 4, 4, 4}
	for i := range wantNPts {
		if nPts[i] != wantNPts[i] {
			t.Errorf("nPts[%d] = %d, want %d", i, nPts[i], wantNPts[i])
		}
		if nPts[i] > 0 && !almostEqual(mean[i], 10, 1e-9) {
			t.Errorf("mean[%d] = %g, want 10", i, mean[i])
		}
		if !almostEqual(variance[i], 0, 1e-6) {
			t.Errorf("variance[%d] = %g, want 0", i, variance[i])
		}
	}
}

func TestRadProfCenterOffImage(t *testing.T) {
	// only the pixel at (0,2) lies within radius 1 of (-1,2)
	im := constantImage(5, 5, 7)
	c := NewProfileCache()

	mean := make([]float64, 3)
	variance := make([]float64, 3)
	nPts := make([]int32, 3)
	totCounts, totPts, err := c.RadProf(im, nil, Pixel{I: -1, J: 2}, 1, mean, variance, nPts)
	if err != nil {
		t.Fatalf("RadProf: %v", err)
	}
	if totPts != 1 {
		t.Errorf("totPts = %d, want 1", totPts)
	}
	if totCounts != 7 {
		t.Errorf("totCounts = %g, want 7", totCounts)
	}
}

func TestRadProfErrors(t *testing.T) {
	im := constantImage(5, 5, 10)
	c := NewProfileCache()
	mean := make([]float64, 10)
	variance := make([]float64, 10)
	nPts := make([]int32, 10)

	t.Run("negative radius", func(t *testing.T) {
		_, _, err := c.RadProf(im, nil, Pixel{I: 2, J: 2}, -1, mean, variance, nPts)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("mask shape mismatch", func(t *testing.T) {
		mask := NewMask(4, 4)
		_, _, err := c.RadProf(im, mask, Pixel{I: 2, J: 2}, 2, mean, variance, nPts)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("output too short", func(t *testing.T) {
		shortMean := []float64{42, 42, 42}
		shortVar := []float64{42, 42, 42}
		shortN := []int32{42, 42, 42}
		_, _, err := c.RadProf(im, nil, Pixel{I: 2, J: 2}, 2, shortMean, shortVar, shortN)
		if !errors.Is(err, ErrOutputTooShort) {
			t.Fatalf("err = %v, want ErrOutputTooShort", err)
		}
		// outputs must be untouched on this failure
		for i := 0; i < 3; i++ {
			if shortMean[i] != 42 || shortVar[i] != 42 || shortN[i] != 42 {
				t.Errorf("output %d modified on error: %g %g %d", i, shortMean[i], shortVar[i], shortN[i])
			}
		}
	})
}

func TestRadSqProfMatchesRadProfTotals(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	im := randomImage(21, 21, rng)
	mask := NewMask(21, 21)
	for n := 0; n < 30; n++ {
		mask.Set(rng.IntN(21), rng.IntN(21), true)
	}

	c := NewProfileCache()
	ctr := Pixel{I: 10, J: 10}
	const rad = 6

	mean := make([]float64, rad+2)
	variance := make([]float64, rad+2)
	nPts := make([]int32, rad+2)
	counts1, pts1, err := c.RadProf(im, mask, ctr, rad, mean, variance, nPts)
	if err != nil {
		t.Fatalf("RadProf: %v", err)
	}

	sqMean := make([]float64, rad*rad+1)
	sqVar := make([]float64, rad*rad+1)
	sqN := make([]int32, rad*rad+1)
	counts2, pts2, err := RadSqProf(im, mask, ctr, rad, sqMean, sqVar, sqN)
	if err != nil {
		t.Fatalf("RadSqProf: %v", err)
	}

	if pts1 != pts2 {
		t.Errorf("totPts: RadProf %d, RadSqProf %d", pts1, pts2)
	}
	if !almostEqual(counts1, counts2, 1e-6) {
		t.Errorf("totCounts: RadProf %g, RadSqProf %g", counts1, counts2)
	}

	var n1, n2 int32
	for _, n := range nPts {
		n1 += n
	}
	for _, n := range sqN {
		n2 += n
	}
	if n1 != n2 || int(n1) != pts1 {
		t.Errorf("binned point totals differ: %d %d %d", n1, n2, pts1)
	}
}

func TestRadProfIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	im := randomImage(15, 15, rng)
	c := NewProfileCache()
	ctr := Pixel{I: 7, J: 7}
	const rad = 5

	run := func() ([]float64, []float64, []int32) {
		mean := make([]float64, rad+2)
		variance := make([]float64, rad+2)
		nPts := make([]int32, rad+2)
		if _, _, err := c.RadProf(im, nil, ctr, rad, mean, variance, nPts); err != nil {
			t.Fatalf("RadProf: %v", err)
		}
		return mean, variance, nPts
	}

	m1, v1, n1 := run()
	m2, v2, n2 := run()
	for i := 0; i < rad+2; i++ {
		if m1[i] != m2[i] || v1[i] != v2[i] || n1[i] != n2[i] {
			t.Errorf("bin %d differs between runs", i)
		}
	}
}

func TestRadAsymmAllMasked(t *testing.T) {
	im := constantImage(9, 9, 50)
	mask := NewMask(9, 9)
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			mask.Set(i, j, true)
		}
	}

	c := NewProfileCache()
	asymm, totCounts, totPts, err := c.RadAsymm(im, mask, Pixel{I: 4, J: 4}, 3)
	if err != nil {
		t.Fatalf("RadAsymm: %v", err)
	}
	if asymm != 0 || totCounts != 0 || totPts != 0 {
		t.Errorf("got asymm=%g counts=%g pts=%d, want all zero", asymm, totCounts, totPts)
	}
}

func TestRadAsymmConstantImageIsZero(t *testing.T) {
	im := constantImage(11, 11, 500)
	c := NewProfileCache()
	asymm, _, totPts, err := c.RadAsymm(im, nil, Pixel{I: 5, J: 5}, 4)
	if err != nil {
		t.Fatalf("RadAsymm: %v", err)
	}
	if totPts == 0 {
		t.Fatal("totPts = 0")
	}
	if !almostEqual(asymm, 0, 1e-3) {
		t.Errorf("asymm = %g, want 0 for a uniform image", asymm)
	}
}

func TestRadAsymmWeightedBiasClamp(t *testing.T) {
	// a bias above every bin mean must behave exactly like a bias equal
	// to the smallest bin mean
	rng := rand.New(rand.NewPCG(21, 42))
	im := randomImage(13, 13, rng)
	c := NewProfileCache()
	ctr := Pixel{I: 6, J: 6}
	const rad = 3

	mean := make([]float64, rad+2)
	variance := make([]float64, rad+2)
	nPts := make([]int32, rad+2)
	if _, _, err := c.RadProf(im, nil, ctr, rad, mean, variance, nPts); err != nil {
		t.Fatalf("RadProf: %v", err)
	}
	minMean := math.Inf(1)
	for i, n := range nPts {
		if n == 0 {
			continue
		}
		if mean[i] < minMean {
			minMean = mean[i]
		}
	}

	ccd := CCDInfo{ReadNoise: 13, CCDGain: 5}

	ccd.Bias = 1e9
	clamped, _, _, err := c.RadAsymmWeighted(im, nil, ctr, rad, ccd)
	if err != nil {
		t.Fatalf("RadAsymmWeighted: %v", err)
	}

	ccd.Bias = minMean
	atMin, _, _, err := c.RadAsymmWeighted(im, nil, ctr, rad, ccd)
	if err != nil {
		t.Fatalf("RadAsymmWeighted: %v", err)
	}

	if !almostEqual(clamped, atMin, math.Abs(atMin)*1e-12) {
		t.Errorf("clamped asymm %g != asymm at min bin mean %g", clamped, atMin)
	}

	// a bias safely below the minimum must give a different answer
	ccd.Bias = minMean - 100
	below, _, _, err := c.RadAsymmWeighted(im, nil, ctr, rad, ccd)
	if err != nil {
		t.Fatalf("RadAsymmWeighted: %v", err)
	}
	if almostEqual(below, atMin, math.Abs(atMin)*1e-12) {
		t.Errorf("asymm with low bias %g unexpectedly equals clamped value", below)
	}
}

func TestProfileCacheGrowsMonotonically(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	im := randomImage(31, 31, rng)
	c := NewProfileCache()
	ctr := Pixel{I: 15, J: 15}

	if _, _, _, err := c.RadAsymm(im, nil, ctr, 10); err != nil {
		t.Fatalf("RadAsymm: %v", err)
	}
	tableLen := len(c.radIndByRadSq)
	scratchLen := len(c.mean)

	// a smaller radius must not shrink or reallocate anything
	if _, _, _, err := c.RadAsymm(im, nil, ctr, 4); err != nil {
		t.Fatalf("RadAsymm: %v", err)
	}
	if len(c.radIndByRadSq) != tableLen {
		t.Errorf("table resized from %d to %d on a smaller radius", tableLen, len(c.radIndByRadSq))
	}
	if len(c.mean) != scratchLen {
		t.Errorf("scratch resized from %d to %d on a smaller radius", scratchLen, len(c.mean))
	}

	// a larger radius grows both
	if _, _, _, err := c.RadAsymm(im, nil, ctr, 14); err != nil {
		t.Fatalf("RadAsymm: %v", err)
	}
	if len(c.radIndByRadSq) < 14*14+1 {
		t.Errorf("table len %d after rad 14, want at least %d", len(c.radIndByRadSq), 14*14+1)
	}
	if len(c.mean) < 16 {
		t.Errorf("scratch len %d after rad 14, want at least 16", len(c.mean))
	}
}
