package clipboard

import (
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// Normalize turns a raw capture into a draft. It reports false for content
// that is never stored: blank text or an empty image. Text is kept exactly.
func Normalize(c Capture) (*types.Draft, bool) {
	switch c.Kind {
	case KindImage:
		if len(c.Image) == 0 {
			return nil, false
		}
		return &types.Draft{
			ContentType: types.TypeImage,
			Image:       c.Image,
			Key:         ImageKey(c.Image),
		}, true
	default:
		if strings.TrimSpace(c.Text) == "" {
			return nil, false
		}
		return &types.Draft{
			ContentType: types.TypeText,
			Text:        c.Text,
			Key:         c.Text,
		}, true
	}
}

// ImageKey is the content address of an image payload
func ImageKey(data []byte) string {
	return "sha256:" + utils.HashContent(data)
}

// KeyOf derives the comparison key of a stored item
func KeyOf(item *types.Item) string {
	if item.ContentType == types.TypeImage {
		return ImageKey(item.Image)
	}
	return item.Text
}

// SameContent reports whether draft duplicates item
func SameContent(draft *types.Draft, item *types.Item) bool {
	if draft == nil || item == nil {
		return false
	}
	return draft.ContentType == item.ContentType && draft.Key == KeyOf(item)
}

// CaptureOf converts a stored item back into clipboard content
func CaptureOf(item *types.Item) Capture {
	if item.ContentType == types.TypeImage {
		return ImageCapture(item.Image)
	}
	return TextCapture(item.Text)
}
