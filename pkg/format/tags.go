package format

import (
	"strings"
)

// Category is the display group of a tag, derived from its first rune
type Category int

const (
	// CategoryPlain is a tag without a marker
	CategoryPlain Category = iota
	// CategoryHash is a "#topic" tag
	CategoryHash
	// CategoryMention is an "@person" tag
	CategoryMention
)

func categoryOf(tag string) Category {
	switch {
	case strings.HasPrefix(tag, "#"):
		return CategoryHash
	case strings.HasPrefix(tag, "@"):
		return CategoryMention
	default:
		return CategoryPlain
	}
}

// TagGroups splits tags by category, keeping input order within each group
type TagGroups struct {
	Hash    []string
	Mention []string
	Plain   []string
}

func GroupTags(tags []string) TagGroups {
	var g TagGroups
	for _, t := range tags {
		switch categoryOf(t) {
		case CategoryHash:
			g.Hash = append(g.Hash, t)
		case CategoryMention:
			g.Mention = append(g.Mention, t)
		default:
			g.Plain = append(g.Plain, t)
		}
	}
	return g
}

// FormatTags renders tags with category groups first: # then @ then plain
func FormatTags(tags []string, opts Options) string {
	if len(tags) == 0 {
		return ""
	}
	g := GroupTags(tags)
	parts := make([]string, 0, len(tags))
	for _, group := range [][]string{g.Hash, g.Mention, g.Plain} {
		for _, t := range group {
			parts = append(parts, ColorizeIf(t, tagColor(t), opts.UseColors))
		}
	}
	return strings.Join(parts, " ")
}

// FormatTagList renders the tag inventory, one category per line
func FormatTagList(tags []string, opts Options) string {
	if len(tags) == 0 {
		return ColorizeIf("No tags", Gray, opts.UseColors)
	}
	g := GroupTags(tags)
	var lines []string
	add := func(title string, group []string) {
		if len(group) == 0 {
			return
		}
		colored := make([]string, len(group))
		for i, t := range group {
			colored[i] = ColorizeIf(t, tagColor(t), opts.UseColors)
		}
		lines = append(lines, BoldIf(title+":", opts.UseColors)+" "+strings.Join(colored, " "))
	}
	add("Categories", g.Hash)
	add("People", g.Mention)
	add("Tags", g.Plain)
	return strings.Join(lines, "\n")
}
