package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// PanelFraction is the share of the chart height, measured from the top,
// that holds the price plot. The rest is volume bars and axis labels.
const PanelFraction = 0.75

// PanelRect returns the price-panel rectangle of an image with the given
// bounds: full width, rows [Min.Y, Min.Y+int(0.75*H)).
func PanelRect(bounds image.Rectangle) image.Rectangle {
	h := int(float64(bounds.Dy()) * PanelFraction)
	return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+h)
}

// ExtractPanel crops img to the region believed to contain the price chart.
//
// The result spans the full width and the top 75% of the height; the footer
// is discarded by construction. The returned image is a new buffer with its
// origin at (0,0); img is only read. Images whose panel rounds down to zero
// rows yield an empty image, which the edge detector rejects.
func ExtractPanel(img image.Image) *image.NRGBA {
	return imaging.Crop(img, PanelRect(img.Bounds()))
}

// PanelResult contains the cropped price panel encoded as base64 PNG.
type PanelResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Panel crops the price panel out of img and encodes it for transport.
func Panel(img image.Image) (*PanelResult, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	panel := ExtractPanel(ToRGB(img))

	encoded, err := EncodePNGBase64(panel)
	if err != nil {
		return nil, fmt.Errorf("failed to encode panel image: %w", err)
	}

	return &PanelResult{
		Width:       panel.Bounds().Dx(),
		Height:      panel.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
