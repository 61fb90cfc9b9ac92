package selection

import (
	"bytes"
	"errors"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jwulff/photoframe-server/internal/domain"
)

var errNoBoundSources = errors.New("selection: frame has no usable bound sources")

// orientationFromBytes decodes just the header to resolve an orientation
// when a Source Adapter's hint came back unknown (spec.md §4.5 step 3).
func orientationFromBytes(data []byte) domain.Orientation {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.OrientationUnknown
	}
	if cfg.Width >= cfg.Height {
		return domain.OrientationLandscape
	}
	return domain.OrientationPortrait
}
