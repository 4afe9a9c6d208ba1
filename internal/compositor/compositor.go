package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/jaeyongpark0121/product-normalizer/internal/imageio"
	"github.com/jaeyongpark0121/product-normalizer/internal/model"
	"github.com/jaeyongpark0121/product-normalizer/internal/rembg"
)

// sink persists finished image bytes under a relative path.
type sink interface {
	Save(ctx context.Context, relPath string, src io.Reader) (string, error)
}

// Config holds the canvas parameters. It is set once at construction and
// shared read-only across all files.
type Config struct {
	TargetWidth  int
	TargetHeight int
	Background   color.NRGBA // opaque canvas fill
	Watermark    Watermark
}

// Watermark optionally stamps text on the finished canvas.
type Watermark struct {
	Enabled  bool
	Text     string
	FontPath string
}

// Compositor normalizes a single image onto a fixed-size canvas: optional
// background removal, shrink-only Lanczos fit, centered alpha composite,
// flatten to opaque PNG.
type Compositor struct {
	cfg     Config
	remover rembg.Remover
	out     sink
	mirror  sink // optional, may be nil
}

// New creates a Compositor. mirror may be nil when no mirroring is configured.
func New(cfg Config, remover rembg.Remover, out sink, mirror sink) *Compositor {
	return &Compositor{
		cfg:     cfg,
		remover: remover,
		out:     out,
		mirror:  mirror,
	}
}

// Process runs the full transform for one task. Either the destination file
// is written with the exact target dimensions, or nothing is written at all.
func (c *Compositor) Process(ctx context.Context, task model.Task, removeBackground bool) error {
	src, err := imageio.Load(task.SourcePath)
	if err != nil {
		return &model.ProcessError{Kind: model.FailureDecode, Err: err}
	}

	// Clone converts any source color mode to NRGBA with an explicit alpha channel.
	img := imaging.Clone(src)

	if removeBackground {
		masked, err := c.remover.Remove(ctx, img)
		if err != nil {
			return &model.ProcessError{Kind: model.FailureExtract, Err: err}
		}
		img = imaging.Clone(masked)
	}

	// Shrink-only, aspect-preserving fit inside the target bounding box.
	// Images already within bounds pass through unscaled.
	fitted := imaging.Fit(img, c.cfg.TargetWidth, c.cfg.TargetHeight, imaging.Lanczos)

	canvas := imaging.New(c.cfg.TargetWidth, c.cfg.TargetHeight, c.cfg.Background)

	// Centered paste, blended with the image's own alpha onto the opaque canvas.
	offset := image.Pt(
		(c.cfg.TargetWidth-fitted.Bounds().Dx())/2,
		(c.cfg.TargetHeight-fitted.Bounds().Dy())/2,
	)
	composed := image.Image(imaging.Overlay(canvas, fitted, offset, 1.0))

	if c.cfg.Watermark.Enabled {
		composed, err = c.watermark(composed)
		if err != nil {
			return &model.ProcessError{Kind: model.FailureEncode, Err: err}
		}
	}

	buf, err := imageio.EncodePNG(composed)
	if err != nil {
		return &model.ProcessError{Kind: model.FailureEncode, Err: err}
	}

	if _, err := c.out.Save(ctx, task.DestRel, bytes.NewReader(buf.Bytes())); err != nil {
		return &model.ProcessError{Kind: model.FailureWrite, Err: err}
	}

	if c.mirror != nil {
		if _, err := c.mirror.Save(ctx, task.DestRel, bytes.NewReader(buf.Bytes())); err != nil {
			return &model.ProcessError{Kind: model.FailureWrite, Err: fmt.Errorf("mirror: %w", err)}
		}
	}

	return nil
}

// watermark draws the configured text in the bottom-right corner of the canvas.
func (c *Compositor) watermark(img image.Image) (image.Image, error) {
	dc := gg.NewContextForImage(img)
	dc.SetColor(color.White)

	fontSize := float64(dc.Width()) * 0.05 // 5% of the canvas width

	if err := dc.LoadFontFace(c.cfg.Watermark.FontPath, fontSize); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	tw, th := dc.MeasureString(c.cfg.Watermark.Text)

	margin := 10.0
	x := float64(dc.Width()) - tw - margin
	y := float64(dc.Height()) - th - margin

	dc.DrawStringAnchored(c.cfg.Watermark.Text, x, y, 1, 1) // bottom-right corner
	dc.Fill()

	return dc.Image(), nil
}
