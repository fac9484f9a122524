package store

// DocumentBookmarks binds a BookmarkStore to one document key, matching the
// session's bookmark interface.
type DocumentBookmarks struct {
	store *BookmarkStore
	key   string
}

// NewDocumentBookmarks creates a sink for the given document key.
func NewDocumentBookmarks(store *BookmarkStore, key string) *DocumentBookmarks {
	return &DocumentBookmarks{store: store, key: key}
}

// Persist records the current paragraph.
func (d *DocumentBookmarks) Persist(paragraphID string, index int) error {
	return d.store.Save(d.key, Bookmark{ParagraphID: paragraphID, Index: index})
}

// Clear drops the bookmark after the document finishes.
func (d *DocumentBookmarks) Clear() error {
	return d.store.Clear(d.key)
}

// Resume returns the saved bookmark for the document, or nil.
func (d *DocumentBookmarks) Resume() (*Bookmark, error) {
	return d.store.Load(d.key)
}
