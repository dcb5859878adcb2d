package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultThumbnailWidth is the preview width used by the web UI.
const DefaultThumbnailWidth = 480

// Thumbnail scales page down to maxWidth pixels wide, keeping the aspect ratio
// and the page's encoding. Pages already narrower than maxWidth are returned
// unchanged.
func Thumbnail(page PageImage, maxWidth int) (PageImage, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultThumbnailWidth
	}
	src, _, err := image.Decode(bytes.NewReader(page.Data))
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to decode page %d: %w", page.PageNumber(), err)
	}
	b := src.Bounds()
	if b.Dx() <= maxWidth {
		return page, nil
	}

	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	switch page.MIMEType {
	case JPEG.MIMEType():
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return PageImage{}, fmt.Errorf("failed to encode thumbnail for page %d: %w", page.PageNumber(), err)
	}

	return PageImage{
		Index:    page.Index,
		Data:     buf.Bytes(),
		MIMEType: page.MIMEType,
		Width:    maxWidth,
		Height:   height,
	}, nil
}
