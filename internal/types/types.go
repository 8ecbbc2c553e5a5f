package types

import (
	"bytes"
	"time"
)

// ContentType represents the type of a stored clipboard item
type ContentType string

const (
	TypeText  ContentType = "text"
	TypeImage ContentType = "image"
)

// ParseContentType validates a content type coming from outside the process
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case TypeText, TypeImage:
		return ContentType(s), nil
	default:
		return "", NewValidationError("content_type", "unsupported content type "+s)
	}
}

// Item is a persisted clipboard history entry
type Item struct {
	ID          int64       `json:"id"`
	ContentType ContentType `json:"content_type"`
	Text        string      `json:"text_content,omitempty"`
	Image       []byte      `json:"image_data,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	IsFavorite  bool        `json:"is_favorite"`
	Tags        []string    `json:"tags"`
}

// Size returns the payload size in bytes
func (i *Item) Size() int {
	if i.ContentType == TypeImage {
		return len(i.Image)
	}
	return len(i.Text)
}

// HasTag reports whether the item carries the exact tag
func (i *Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Draft is a normalized candidate that has not been persisted yet
type Draft struct {
	ContentType ContentType
	Text        string
	Image       []byte
	// Key is compared against the most recent item to detect duplicates.
	Key string
}

// Equal compares two drafts by their payload
func (d *Draft) Equal(other *Draft) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.ContentType == other.ContentType && d.Text == other.Text && bytes.Equal(d.Image, other.Image)
}

// Timestamp normalizes a time the way every backend stores it: UTC with
// microsecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
