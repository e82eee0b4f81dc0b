package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// PreprocessMode selects how an image is cleaned up before OCR.
type PreprocessMode string

const (
	PreprocessNone     PreprocessMode = "none"
	PreprocessGray     PreprocessMode = "gray"
	PreprocessBinary   PreprocessMode = "binary"
	PreprocessAdaptive PreprocessMode = "adaptive"
)

// ParsePreprocessMode validates a mode name from config. Empty means gray.
func ParsePreprocessMode(s string) (PreprocessMode, error) {
	switch m := PreprocessMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return PreprocessGray, nil
	case PreprocessNone, PreprocessGray, PreprocessBinary, PreprocessAdaptive:
		return m, nil
	default:
		return "", fmt.Errorf("unknown preprocess mode %q (want none, gray, binary or adaptive)", s)
	}
}

const (
	minOCRHeight     = 900
	upscaleOCRHeight = 1300
	binaryThreshold  = 210
)

var (
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

// Preprocess applies mode to img. Small photos are upscaled because Tesseract
// loses thin receipt fonts below roughly 900px of height.
func Preprocess(img image.Image, mode PreprocessMode) image.Image {
	if mode == PreprocessNone {
		return img
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, upscaleOCRHeight, imaging.Lanczos)
	}
	switch mode {
	case PreprocessBinary:
		return binarize(gray, binaryThreshold)
	case PreprocessAdaptive:
		return dilate(adaptiveThreshold(gray, 15, 7), 1)
	}
	return gray
}

// preprocessBytes decodes an uploaded image (honouring EXIF orientation, which
// phone cameras rely on), preprocesses it and re-encodes it as PNG.
func preprocessBytes(data []byte, mode PreprocessMode) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Preprocess(img, mode), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePreprocessed saves what the OCR engine would see for data to path. The
// format follows the path extension.
func WritePreprocessed(data []byte, mode PreprocessMode, path string) error {
	img, err := decodeImage(data)
	if err != nil {
		return err
	}
	return imaging.Save(Preprocess(img, mode), path)
}

// luma reads the gray level of a pixel. imaging returns images anchored at
// (0,0), which every helper below assumes.
func luma(img *image.NRGBA, x, y int) int {
	i := y*img.Stride + x*4
	return (int(img.Pix[i]) + int(img.Pix[i+1]) + int(img.Pix[i+2])) / 3
}

// binarize maps every pixel at or below threshold to black, the rest to white.
func binarize(img *image.NRGBA, threshold int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, white)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if luma(img, x, y) <= threshold {
				out.SetNRGBA(x, y, black)
			}
		}
	}
	return out
}

// adaptiveThreshold compares each pixel to the mean of its window, which copes
// with the uneven lighting of photographed receipts better than a global cut.
func adaptiveThreshold(img *image.NRGBA, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, white)

	// integral[(y+1)*(w+1)+(x+1)] is the sum of luma over [0,x]×[0,y].
	stride := w + 1
	integral := make([]int, stride*(h+1))
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			row += luma(img, x, y)
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half, w-1)
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			if luma(img, x, y) < max(mean-bias, 0) {
				out.SetNRGBA(x, y, black)
			}
		}
	}
	return out
}

// dilate thickens black strokes by radius pixels (4-neighbourhood).
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		next := imaging.New(w, h, white)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for _, d := range [5][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x2, y2 := x+d[0], y+d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if luma(cur, x2, y2) == 0 {
						next.SetNRGBA(x, y, black)
						break
					}
				}
			}
		}
		cur = next
	}
	return cur
}
