package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pyguide/pkg/pyguide"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("pyguide", flag.ContinueOnError)
	overlayPath := fs.String("overlay", "", "write a JPG overlay of the found stars to this path")
	dataCut := fs.Float64("cut", 3.0, "detection threshold in sky sigma above the median")
	satLevel := fs.Float64("sat", 65535, "saturation level (ADU)")
	radMult := fs.Float64("radmult", 1.0, "centroid radius multiplier")
	bias := fs.Float64("bias", 0, "ccd bias (ADU), overridden by FITS PEDESTAL")
	readNoise := fs.Float64("readnoise", 13, "ccd read noise (e-), overridden by FITS RDNOISE")
	ccdGain := fs.Float64("gain", 1.0, "ccd gain (e-/ADU), overridden by FITS EGAIN/GAIN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: pyguide [flags] <input-file>")
	}
	inputFilePath := fs.Arg(0)
	fmt.Printf("Loading: %s\n", inputFilePath)

	ccd := pyguide.CCDInfo{Bias: *bias, ReadNoise: *readNoise, CCDGain: *ccdGain}

	var im *pyguide.Image
	lowerPath := strings.ToLower(inputFilePath)
	if strings.HasSuffix(lowerPath, ".fits") || strings.HasSuffix(lowerPath, ".fit") {
		fits, err := pyguide.ReadFITS(inputFilePath)
		if err != nil {
			return fmt.Errorf("reading FITS: %w", err)
		}
		im = fits.Image
		ccd = fits.CCDInfo(ccd)
		fmt.Printf("FITS loaded: %dx%d\n", im.Cols(), im.Rows())
	} else {
		var err error
		im, err = loadNonFitsImage(inputFilePath)
		if err != nil {
			return err
		}
		fmt.Printf("Image loaded: %dx%d\n", im.Cols(), im.Rows())
	}

	params := pyguide.NewFindStarsParams()
	params.DataCut = *dataCut
	params.SatLevel = *satLevel
	params.RadMult = *radMult

	startTime := time.Now()
	cache := pyguide.NewProfileCache()
	res, err := cache.FindStars(im, nil, ccd, params)
	if err != nil {
		return fmt.Errorf("finding stars: %w", err)
	}
	elapsed := time.Since(startTime)

	fmt.Println()
	fmt.Printf("=== Star Search Results (%.2fs) ===\n", elapsed.Seconds())
	fmt.Printf("  Candidates:       %d\n", res.Metrics.Candidates)
	fmt.Printf("  Too small:        %d\n", res.Metrics.TooSmall)
	fmt.Printf("  Saturated:        %d\n", res.Metrics.Saturated)
	fmt.Printf("  Centroid failed:  %d\n", res.Metrics.CentroidFailed)
	fmt.Printf("  Stars found:      %d\n", len(res.Stars))
	if res.Saturated {
		fmt.Println("  WARNING: some pixels are saturated!")
	}
	fmt.Println()

	fmt.Println("x ctr\ty ctr\tx err\ty err\t    counts\tpixels\tradius")
	for _, cd := range res.Stars {
		fmt.Printf("%.1f\t%.1f\t%.1f\t%.1f\t%10.0f\t%6d\t%5d\n",
			cd.Ctr[1], cd.Ctr[0],
			cd.Err[1], cd.Err[0],
			cd.Counts, cd.Pix, cd.Rad)
	}

	if *overlayPath != "" {
		if err := pyguide.RenderStarOverlay(im, res, *overlayPath); err != nil {
			return fmt.Errorf("rendering overlay: %w", err)
		}
		fmt.Printf("\nOverlay written to %s\n", *overlayPath)
	}
	return nil
}
