package planEditor

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	dayImages "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/day_images"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

type UploadOptions struct {
	MaxBytes    int64
	MaxEdgePx   int
	JPEGQuality int
}

// UploadedFile is one local image supplied for a day.
type UploadedFile struct {
	Name string
	Data []byte
}

// encodeUpload decodes an uploaded image, shrinks it to MaxEdgePx and embeds
// it as a JPEG data URL with no external reference.
func encodeUpload(f UploadedFile, opts UploadOptions) (types.ImageBlob, error) {
	if len(f.Data) == 0 {
		return types.ImageBlob{}, fmt.Errorf("%w: %s is empty", types.ErrValidation, f.Name)
	}
	if opts.MaxBytes > 0 && int64(len(f.Data)) > opts.MaxBytes {
		return types.ImageBlob{}, fmt.Errorf("%w: %s exceeds %d bytes", types.ErrValidation, f.Name, opts.MaxBytes)
	}
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return types.ImageBlob{}, fmt.Errorf("%w: %s is not a supported image: %w", types.ErrValidation, f.Name, err)
	}

	b := img.Bounds()
	if opts.MaxEdgePx > 0 && (b.Dx() > opts.MaxEdgePx || b.Dy() > opts.MaxEdgePx) {
		img = imaging.Fit(img, opts.MaxEdgePx, opts.MaxEdgePx, imaging.Lanczos)
	}

	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return types.ImageBlob{}, fmt.Errorf("failed to encode %s: %w", f.Name, err)
	}
	return types.ImageBlob{
		Source:   types.ImageSourceUploaded,
		MIMEType: "image/jpeg",
		URL:      dayImages.DataURL("image/jpeg", buf.Bytes()),
	}, nil
}
