package nav

import (
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Label string
	Path  string // e.g. "/chat"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Label  string
	Href   string
	Active bool
}

// Matcher decides whether the item target should be highlighted for the current path.
type Matcher func(currentPath, itemPath string) bool

// Features is the primary navigation definition, in display order.
var Features = []Item{
	{Label: "Chat", Path: "/chat"},
	{Label: "Breathing", Path: "/breathing"},
	{Label: "Mood", Path: "/mood"},
	{Label: "Journal", Path: "/journal"},
	{Label: "Community", Path: "/community"},
	{Label: "Resources", Path: "/resources"},
	{Label: "Consultation", Path: "/consultation"},
}

// UrgentSupport is the fixed call-to-action rendered next to the feature list.
// It never takes part in active-state computation.
var UrgentSupport = Item{Label: "Urgent Support", Path: "/urgent-support"}

// Build renders navigation items with active state given the current path.
// At most one item is active; when the matcher accepts several, the longest path wins.
func Build(currentPath string, match Matcher) []RenderedItem {
	if match == nil {
		match = PrefixMatch
	}
	current := Normalize(currentPath)

	items := make([]RenderedItem, 0, len(Features))
	best := -1
	for i, it := range Features {
		items = append(items, RenderedItem{
			Label: it.Label,
			Href:  it.Path,
		})
		if !match(current, Normalize(it.Path)) {
			continue
		}
		if best == -1 || len(it.Path) > len(Features[best].Path) {
			best = i
		}
	}
	if best >= 0 {
		items[best].Active = true
	}
	return items
}

// ExactMatch highlights an item only when the current path equals its target.
func ExactMatch(currentPath, itemPath string) bool {
	return Normalize(currentPath) == Normalize(itemPath)
}

// PrefixMatch highlights an item for its own path and any descendant path.
func PrefixMatch(currentPath, itemPath string) bool {
	current := Normalize(currentPath)
	target := Normalize(itemPath)
	if target == "/" {
		return current == "/"
	}
	// match exact or prefix boundary: "/chat" or "/chat/..."
	if current == target {
		return true
	}
	return strings.HasPrefix(current, target+"/")
}

// MatcherByName resolves a configured matching rule. Unknown names fall back to prefix matching.
func MatcherByName(name string) Matcher {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exact":
		return ExactMatch
	default:
		return PrefixMatch
	}
}

// Normalize cleans a request path for comparison.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if i := strings.IndexAny(path, "?#"); i != -1 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
