package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/phpdave11/gofpdf"
	_ "golang.org/x/image/bmp"
)

type registeredImage struct {
	name string
	w, h float64
}

// image decodes the file at path and registers it with the document as an
// 8-bit PNG, which gofpdf can embed whatever the source format was.
func (d *document) image(path string) (registeredImage, error) {
	if img, ok := d.images[path]; ok {
		return img, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return registeredImage{}, err
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return registeredImage{}, fmt.Errorf("failed to decode image: %w", err)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return registeredImage{}, errors.New("image has no pixels")
	}

	rgba := image.NewNRGBA(b)
	draw.Draw(rgba, b, src, b.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return registeredImage{}, fmt.Errorf("failed to encode image: %w", err)
	}

	d.f.RegisterImageOptionsReader(path, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if d.f.Err() {
		err := d.f.Error()
		d.f.ClearError()
		return registeredImage{}, fmt.Errorf("failed to register image: %w", err)
	}

	img := registeredImage{name: path, w: float64(b.Dx()), h: float64(b.Dy())}
	if d.images == nil {
		d.images = make(map[string]registeredImage)
	}
	d.images[path] = img
	return img, nil
}

func (d *document) placeImage(img registeredImage, x, top, w, h float64) {
	d.f.ImageOptions(img.name, x, top, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

// logo draws the image at path inside a maxW x maxH box. Missing or
// unreadable logos are skipped.
func (d *document) logo(path string, x, top, maxW, maxH float64) {
	if path == "" {
		return
	}
	img, err := d.image(path)
	if err != nil {
		d.renderer.logger.Warn("logo skipped", "path", path, "error", err)
		return
	}
	w, h := fitBox(img.w, img.h, maxW, maxH, false)
	d.placeImage(img, x, top, w, h)
}

// fitBox scales w x h to fit inside maxW x maxH keeping the aspect ratio.
// Images that already fit keep their size unless grow is set.
func fitBox(w, h, maxW, maxH float64, grow bool) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := min(maxW/w, maxH/h)
	if scale >= 1 && !grow {
		return w, h
	}
	return w * scale, h * scale
}
