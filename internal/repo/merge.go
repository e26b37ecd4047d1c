package repo

import "github.com/mesh-intelligence/linkshelf/pkg/types"

// mergeCategoryFields applies a category update. The name is replaced only
// by a non-empty value, so null keeps the old name. The order is replaced
// whenever sent; null sets it to 0.
func mergeCategoryFields(c types.Category, p types.CategoryPatch) types.Category {
	if p.Name.Set && p.Name.Value != "" {
		c.Name = p.Name.Value
	}
	if p.Order.Set {
		c.Order = p.Order.Value
	}
	return c
}

// mergeLinkFields applies a link update. Every sent field overwrites the
// stored one; empty strings and null clear it.
func mergeLinkFields(l types.Link, p types.LinkPatch) types.Link {
	if p.Title.Set {
		l.Title = p.Title.Value
	}
	if p.URL.Set {
		l.URL = p.URL.Value
	}
	if p.Description.Set {
		l.Description = p.Description.Value
	}
	if p.CategoryID.Set {
		l.CategoryID = p.CategoryID.Value
	}
	if p.Order.Set {
		l.Order = p.Order.Value
	}
	return l
}
