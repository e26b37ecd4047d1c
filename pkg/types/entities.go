package types

// Category groups links on the directory page.
type Category struct {
	// ID is assigned once at insert time and never changes.
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order Order  `json:"order"`
}

// Link is a bookmarked URL. CategoryID is not checked against the
// categories collection; deleting a category orphans its links.
type Link struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"categoryId"`
	Order       Order  `json:"order"`
}

// CategoryPatch carries the fields of a category update. A field that was
// not sent is not Set; a field sent as null is Set with its zero value.
type CategoryPatch struct {
	Name  Optional[string] `json:"name"`
	Order Optional[Order]  `json:"order"`
}

// LinkPatch carries the fields of a link update, with the same presence
// rules as CategoryPatch.
type LinkPatch struct {
	Title       Optional[string] `json:"title"`
	URL         Optional[string] `json:"url"`
	Description Optional[string] `json:"description"`
	CategoryID  Optional[string] `json:"categoryId"`
	Order       Optional[Order]  `json:"order"`
}
