package pyguide

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderStarOverlay writes a JPG of the image with the found stars marked
// and a summary line at the bottom.
func RenderStarOverlay(im *Image, res *FindStarsResult, outputPath string) error {
	img, err := renderStarImage(im, res)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// RenderStarOverlayBytes renders the star overlay and returns it as JPEG
// bytes.
func RenderStarOverlayBytes(im *Image, res *FindStarsResult) ([]byte, error) {
	img, err := renderStarImage(im, res)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderStarImage(im *Image, res *FindStarsResult) (*image.RGBA, error) {
	if im == nil || res == nil {
		return nil, fmt.Errorf("no image or star data")
	}

	// Reserve space for summary text at bottom
	summaryH := 40
	imgW, imgH := im.cols, im.rows
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH+summaryH))

	lo, hi := stretchRange(im)
	scale := 0.0
	if hi > lo {
		scale = 255.0 / (hi - lo)
	}
	for y := 0; y < imgH; y++ {
		row := im.row(y)
		for x := 0; x < imgW; x++ {
			v := (float64(row[x]) - lo) * scale
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			g := uint8(v)
			img.Set(x, y, color.RGBA{g, g, g, 255})
		}
	}
	for y := imgH; y < imgH+summaryH; y++ {
		for x := 0; x < imgW; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	face := basicfont.Face7x13
	markColor := color.RGBA{80, 255, 80, 255}
	textColor := color.RGBA{255, 255, 80, 255}
	for n, star := range res.Stars {
		// image x is the j axis, y is the i axis
		cx := int(star.Ctr[1] + 0.5)
		cy := int(star.Ctr[0] + 0.5)
		drawCross(img, cx, cy, 4, markColor)
		drawCircle(img, cx, cy, star.Rad, markColor)
		drawText(img, face, fmt.Sprintf("%d", n+1), cx+star.Rad+2, cy+4, textColor)
	}

	summaryColor := color.RGBA{220, 220, 220, 255}
	summary := fmt.Sprintf("%d stars", len(res.Stars))
	if res.Saturated {
		summary += "  [SATURATED]"
	}
	drawText(img, face, summary, 10, imgH+16, summaryColor)
	drawText(img, face, fmt.Sprintf("candidates=%d tooSmall=%d saturated=%d centroidFailed=%d",
		res.Metrics.Candidates, res.Metrics.TooSmall, res.Metrics.Saturated, res.Metrics.CentroidFailed),
		10, imgH+32, summaryColor)

	return img, nil
}

// stretchRange picks display black and white points from the sky statistics
// so faint stars stay visible without saturating the background.
func stretchRange(im *Image) (lo, hi float64) {
	med, stdDev, err := SkyStats(im, nil)
	if err != nil {
		return 0, 1
	}
	lo = med - 1*stdDev
	hi = med + 10*stdDev
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCross draws an x-shaped marker centered at (cx, cy).
func drawCross(img *image.RGBA, cx, cy, arm int, c color.RGBA) {
	for d := -arm; d <= arm; d++ {
		img.Set(cx+d, cy+d, c)
		img.Set(cx+d, cy-d, c)
	}
}

// drawCircle draws a circle outline using midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}
