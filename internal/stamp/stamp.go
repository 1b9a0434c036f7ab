package stamp

// Package stamp renders the provenance mark onto a raster copy of a shared
// document before any pixels are served. The mark identifies sender and
// recipient; a document is never served unmarked.

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"securedoc/internal/model"
)

// ErrRender indicates the source bytes could not be decoded as an image.
// The caller must fail the view attempt; there is no unmarked fallback.
var ErrRender = errors.New("document image cannot be decoded")

// maxDisplayWidth caps the rendered copy; images are only ever downscaled.
const maxDisplayWidth = 800

// Options select the mark to burn in. Now is an explicit input so a render
// is a pure function of its arguments.
type Options struct {
	Style          model.WatermarkStyle
	SenderName     string
	RecipientLabel string
	Now            time.Time
}

var (
	fontOnce sync.Once
	fontErr  error
	boldFont *sfnt.Font
)

func face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		boldFont, fontErr = opentype.Parse(gobold.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return opentype.NewFace(boldFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Render decodes src, downscales it to the display width when needed, burns
// the provenance mark and returns the result encoded as PNG.
func Render(src []byte, opts Options) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrRender
	}
	if w > maxDisplayWidth {
		scale := float64(maxDisplayWidth) / float64(w)
		sw, sh := maxDisplayWidth, int(float64(h)*scale)
		if sh < 1 {
			sh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, sw, sh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img, w, h = dst, sw, sh
	}

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	switch opts.Style {
	case model.WatermarkFooter:
		if err := drawFooter(dc, opts); err != nil {
			return nil, err
		}
	default:
		// GHOST is the default when the style is absent or unknown.
		if err := drawGhost(dc, opts); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode stamped image: %w", err)
	}
	return out.Bytes(), nil
}

// drawGhost burns two rotated low-alpha lines through the center: the
// sender's name and the recipient label. Alpha is low enough to keep the
// document legible.
func drawGhost(dc *gg.Context, opts Options) error {
	nameFace, err := face(30)
	if err != nil {
		return err
	}
	idFace, err := face(36)
	if err != nil {
		return err
	}

	w := float64(dc.Width())
	h := float64(dc.Height())

	dc.Push()
	dc.RotateAbout(gg.Radians(-45), w/2, h/2)
	dc.SetRGBA(0, 0, 0, 0.09)

	sender := strings.ToUpper(opts.SenderName)
	if sender == "" {
		sender = "ANONYMOUS"
	}
	dc.SetFontFace(nameFace)
	dc.DrawStringAnchored(sender, w/2, h/2-30, 0.5, 0.5)

	dc.SetFontFace(idFace)
	dc.DrawStringAnchored(strings.ToUpper(opts.RecipientLabel), w/2, h/2+30, 0.5, 0.5)
	dc.Pop()

	return nil
}

// drawFooter burns one high-contrast line along the bottom edge: black text
// over a white outline so it reads on any background.
func drawFooter(dc *gg.Context, opts Options) error {
	footFace, err := face(16)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("SecureDoc • Sent by: %s • %s • %s",
		opts.SenderName, opts.RecipientLabel, opts.Now.Format("02 Jan 2006"))

	w := float64(dc.Width())
	y := float64(dc.Height()) - 20

	dc.SetFontFace(footFace)

	// Outline: the same string offset around the anchor in white.
	dc.SetRGB(1, 1, 1)
	for dx := -2.0; dx <= 2; dx++ {
		for dy := -2.0; dy <= 2; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			dc.DrawStringAnchored(text, w/2+dx, y+dy, 0.5, 0.5)
		}
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(text, w/2, y, 0.5, 0.5)

	return nil
}
