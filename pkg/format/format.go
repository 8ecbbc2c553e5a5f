// Package format renders clipboard history for terminals.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
)

// Formatter is the main formatting orchestrator that delegates to specialized formatters
type Formatter struct {
	options Options
	now     func() time.Time
}

// New creates a new formatter with the given options
func New(opts Options) *Formatter {
	return &Formatter{
		options: opts,
		now:     time.Now,
	}
}

// WithClock fixes the reference time for relative timestamps
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	f.now = now
	return f
}

// FormatItem formats a single clipboard item
func (f *Formatter) FormatItem(item *types.Item) string {
	if item == nil {
		return ColorizeIf("No content", Gray, f.options.UseColors)
	}

	header := f.formatHeader(item)

	if f.options.Compact {
		line := header + " " + DimIf(f.formatPreview(item, 50), f.options.UseColors)
		if tags := FormatTags(item.Tags, f.options); tags != "" {
			line += " " + tags
		}
		return line
	}

	parts := []string{header}
	if f.options.ShowMetadata {
		parts = append(parts, f.formatMetadata(item))
	}
	if body := CreateBox("Content", f.formatData(item), f.options); body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n")
}

// FormatPage formats one page of a listing with a summary line
func (f *Formatter) FormatPage(page *types.Page) string {
	if page == nil || page.Total == 0 {
		return ColorizeIf("No clipboard history", Gray, f.options.UseColors)
	}
	if len(page.Items) == 0 {
		return ColorizeIf(fmt.Sprintf("Page %d is past the end (%d pages)", page.Page, page.TotalPages),
			Gray, f.options.UseColors)
	}

	parts := []string{f.formatListHeader(page), ""}
	for i, item := range page.Items {
		parts = append(parts, f.FormatItem(item))
		if !f.options.Compact && i < len(page.Items)-1 {
			parts = append(parts, CreateSeparator(f.options))
		}
	}
	return strings.Join(parts, "\n")
}

func (f *Formatter) formatHeader(item *types.Item) string {
	var parts []string

	parts = append(parts, BoldIf(fmt.Sprintf("#%d", item.ID), f.options.UseColors))

	if f.options.UseIcons {
		if icon, ok := ContentIcons[item.ContentType]; ok {
			parts = append(parts, icon)
		}
	}

	typeStr := string(item.ContentType)
	if color, ok := ContentColors[item.ContentType]; ok {
		typeStr = ColorizeIf(typeStr, color, f.options.UseColors)
	}
	parts = append(parts, typeStr)

	if item.IsFavorite {
		parts = append(parts, ColorizeIf(favoriteIcon, BrightYellow, f.options.UseColors))
	}

	return strings.Join(parts, " ")
}

func (f *Formatter) formatMetadata(item *types.Item) string {
	parts := []string{
		DimIf("Created: "+FormatRelativeTime(item.CreatedAt, f.now()), f.options.UseColors),
		DimIf("Size: "+FormatSize(int64(item.Size())), f.options.UseColors),
	}
	if tags := FormatTags(item.Tags, f.options); tags != "" {
		parts = append(parts, DimIf("Tags:", f.options.UseColors)+" "+tags)
	}
	return strings.Join(parts, " • ")
}

func (f *Formatter) formatData(item *types.Item) string {
	if item.ContentType == types.TypeImage {
		return FormatImage(item.Image)
	}
	return FormatText(item.Text, f.options)
}

func (f *Formatter) formatPreview(item *types.Item, maxLen int) string {
	if item.ContentType == types.TypeImage {
		return FormatImagePreview(item.Image)
	}
	return FormatTextPreview(item.Text, maxLen)
}

func (f *Formatter) formatListHeader(page *types.Page) string {
	title := fmt.Sprintf("📋 Clipboard History (%d entries, page %d/%d)", page.Total, page.Page, page.TotalPages)
	return ColorizeIf(title, BrightBlue, f.options.UseColors)
}

// FormatItem formats a single item with given options
func FormatItem(item *types.Item, opts Options) string {
	return New(opts).FormatItem(item)
}

// FormatPage formats a listing page with given options
func FormatPage(page *types.Page, opts Options) string {
	return New(opts).FormatPage(page)
}
