package pyguide

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestQuartile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}

	q2, err := Quartile(sorted, 2)
	if err != nil {
		t.Fatalf("Quartile: %v", err)
	}
	if !almostEqual(q2, 5, 1e-9) {
		t.Errorf("Q2 = %g, want 5", q2)
	}

	q1, _ := Quartile(sorted, 1)
	q3, _ := Quartile(sorted, 3)
	if q1 >= q2 || q2 >= q3 {
		t.Errorf("quartiles not ordered: %g %g %g", q1, q2, q3)
	}

	if _, err := Quartile(nil, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty data err = %v, want ErrInvalidArgument", err)
	}
	if _, err := Quartile(sorted, 4); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("qnum 4 err = %v, want ErrInvalidArgument", err)
	}
}

func TestSkyStatsUniform(t *testing.T) {
	im := constantImage(20, 20, 100)
	med, stdDev, err := SkyStats(im, nil)
	if err != nil {
		t.Fatalf("SkyStats: %v", err)
	}
	if !almostEqual(med, 100, 1e-9) {
		t.Errorf("med = %g, want 100", med)
	}
	if !almostEqual(stdDev, 0, 1e-9) {
		t.Errorf("stdDev = %g, want 0", stdDev)
	}
}

func TestSkyStatsIgnoresBrightPixels(t *testing.T) {
	// sky of about 1000 with a handful of very bright star pixels;
	// the clipped IQR estimate must not be dragged up by the stars
	rng := rand.New(rand.NewPCG(9, 9))
	im := NewImage(30, 30)
	for i := 0; i < 30; i++ {
		row := im.row(i)
		for j := range row {
			row[j] = float32(1000 + rng.Float64()*20)
		}
	}
	for n := 0; n < 12; n++ {
		im.Set(rng.IntN(30), rng.IntN(30), 60000)
	}

	med, stdDev, err := SkyStats(im, nil)
	if err != nil {
		t.Fatalf("SkyStats: %v", err)
	}
	if med < 1000 || med > 1020 {
		t.Errorf("med = %g, want within the sky range", med)
	}
	if stdDev > 20 {
		t.Errorf("stdDev = %g, want sky-level scatter", stdDev)
	}
}

func TestSkyStatsMaskedAndErrors(t *testing.T) {
	im := constantImage(10, 10, 50)
	mask := NewMask(10, 10)
	for j := 0; j < 10; j++ {
		mask.Set(0, j, true)
	}
	med, _, err := SkyStats(im, mask)
	if err != nil {
		t.Fatalf("SkyStats with partial mask: %v", err)
	}
	if med != 50 {
		t.Errorf("med = %g, want 50", med)
	}

	all := NewMask(10, 10)
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			all.Set(i, j, true)
		}
	}
	if _, _, err := SkyStats(im, all); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("fully masked err = %v, want ErrInvalidArgument", err)
	}

	if _, _, err := SkyStats(im, NewMask(9, 9)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("shape mismatch err = %v, want ErrInvalidArgument", err)
	}
}

func TestSubframeCtr(t *testing.T) {
	im := NewImage(10, 10)
	im.Set(5, 6, 77)

	sub, org, err := SubframeCtr(im, 5, 5, 2, 2)
	if err != nil {
		t.Fatalf("SubframeCtr: %v", err)
	}
	if sub.Rows() != 5 || sub.Cols() != 5 {
		t.Errorf("shape = %dx%d, want 5x5", sub.Rows(), sub.Cols())
	}
	if org != (Pixel{I: 3, J: 3}) {
		t.Errorf("org = %v, want {3 3}", org)
	}
	if sub.At(5-org.I, 6-org.J) != 77 {
		t.Error("subframe does not view the parent data")
	}

	// clipped at the image corner
	sub, org, err = SubframeCtr(im, 0, 0, 3, 3)
	if err != nil {
		t.Fatalf("SubframeCtr at corner: %v", err)
	}
	if org != (Pixel{I: 0, J: 0}) || sub.Rows() != 4 || sub.Cols() != 4 {
		t.Errorf("corner subframe: org=%v shape=%dx%d", org, sub.Rows(), sub.Cols())
	}

	if _, _, err := SubframeCtr(im, -20, -20, 3, 3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("off-image err = %v, want ErrInvalidArgument", err)
	}
	if _, _, err := SubframeCtr(im, 5, 5, -1, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative radius err = %v, want ErrInvalidArgument", err)
	}
}
