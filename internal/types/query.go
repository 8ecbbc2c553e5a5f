package types

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// Filter restricts a listing to a subset of items
type Filter int

const (
	FilterAll Filter = iota
	FilterText
	FilterImage
	FilterFavorites
)

var filterNames = map[Filter]string{
	FilterAll:       "all",
	FilterText:      "text",
	FilterImage:     "image",
	FilterFavorites: "favorites",
}

func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFilter accepts the names used by the CLI and the HTTP API. The empty
// string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "text":
		return FilterText, nil
	case "image", "images":
		return FilterImage, nil
	case "favorites", "favorite", "fav":
		return FilterFavorites, nil
	default:
		return FilterAll, NewValidationError("filter", "unknown filter "+s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Filter) UnmarshalText(b []byte) error {
	parsed, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Query describes one page of a filtered, searched listing
type Query struct {
	Filter   Filter `json:"filter"`
	Search   string `json:"search,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Normalize fills in defaults for an unset page and page size
func (q Query) Normalize() Query {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Validate checks the pagination bounds
func (q Query) Validate() error {
	if q.Page < 1 {
		return NewValidationError("page", "must be >= 1")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return NewValidationError("page_size", "must be between 1 and 1000")
	}
	if q.Page > math.MaxInt/q.PageSize {
		return NewValidationError("page", "out of range")
	}
	if _, ok := filterNames[q.Filter]; !ok {
		return NewValidationError("filter", "unknown filter")
	}
	return nil
}

// Offset returns the number of matching items that precede the page. It
// saturates instead of overflowing.
func (q Query) Offset() int {
	if q.Page < 1 || q.PageSize < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

// Page is the result of a listing
type Page struct {
	Items      []*Item `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}

// NewPage assembles the page metadata for a query result
func NewPage(q Query, items []*Item, total int) *Page {
	if items == nil {
		items = []*Item{}
	}
	pages := 0
	if q.PageSize > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: pages,
	}
}
