package types

// Fixed keys holding the two collections. Each key stores one JSON array.
const (
	CategoriesKey = "categories"
	LinksKey      = "links"
)

// CollectionKeys lists the collection keys in lock order.
var CollectionKeys = []string{
	CategoriesKey,
	LinksKey,
}
