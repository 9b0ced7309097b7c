package services

import (
	"strings"

	"campus-delivery/models"
)

// UncategorizedLabel groups menu items that carry no category.
const UncategorizedLabel = "Uncategorized"

// FilterByName keeps the items whose name contains query, ignoring case.
// A blank query keeps everything. Order is preserved.
func FilterByName[T any](items []T, query string, name func(T) string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if q == "" || strings.Contains(strings.ToLower(name(it)), q) {
			out = append(out, it)
		}
	}
	return out
}

func FilterCafeterias(cafeterias []models.Cafeteria, query string) []models.Cafeteria {
	return FilterByName(cafeterias, query, func(c models.Cafeteria) string { return c.Name })
}

func FilterMenuItems(items []models.MenuItem, query string) []models.MenuItem {
	return FilterByName(items, query, func(it models.MenuItem) string { return it.Name })
}

// MenuCategory is one heading of the menu view.
type MenuCategory struct {
	Name  string
	Items []models.MenuItem
}

// GroupByCategory partitions items by category label in first-seen order.
func GroupByCategory(items []models.MenuItem) []MenuCategory {
	var groups []MenuCategory
	index := make(map[string]int)
	for _, it := range items {
		name := strings.TrimSpace(it.Category)
		if name == "" {
			name = UncategorizedLabel
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, MenuCategory{Name: name})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
