package watermark

import (
	"fmt"
	"image"
	"os"
)

// Logo is the decoded watermark. It is created once at startup and only
// read afterwards, so it is safe to share between concurrent handlers.
type Logo struct {
	img  image.Image
	path string
}

// NewLogo wraps an already decoded image.
func NewLogo(img image.Image) (*Logo, error) {
	if img == nil || img.Bounds().Dx() == 0 {
		return nil, ErrEmptyLogo
	}
	return &Logo{img: img}, nil
}

// LoadLogo decodes the logo stored at path.
func LoadLogo(path string) (*Logo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logo %s: %w", path, err)
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("logo %s: %w", path, err)
	}
	logo, err := NewLogo(img)
	if err != nil {
		return nil, fmt.Errorf("logo %s: %w", path, err)
	}
	logo.path = path
	return logo, nil
}

// Image returns the decoded logo.
func (l *Logo) Image() image.Image { return l.img }

// Path returns the file the logo was loaded from, empty for in-memory logos.
func (l *Logo) Path() string { return l.path }

// Apply composites the logo onto src.
func (l *Logo) Apply(src image.Image) (*image.RGBA, error) {
	return Composite(src, l.img)
}
