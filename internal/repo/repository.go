// Package repo maintains the categories and links collections. Each
// collection is one JSON array under a fixed key; every mutation reads the
// whole array, changes it in memory, and writes the whole array back.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/linkshelf/internal/keylock"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// Repository reads and writes both collections through a types.Store.
type Repository struct {
	store  types.Store
	locker keylock.Locker
	newID  func() (string, error)
}

// Option configures a Repository.
type Option func(*Repository)

// WithLocker makes every read-modify-write cycle hold l's lock for the
// collection key, so concurrent writes on one collection cannot lose
// updates. Pass the same locker to the backup manager to serialize
// snapshots and restores with them.
func WithLocker(l keylock.Locker) Option {
	return func(r *Repository) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(r *Repository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// New returns a Repository over store. Writes are not serialized unless
// WithLocker is given.
func New(store types.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		locker: keylock.Nop{},
		newID:  newUUIDv7,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Locker returns the lock the repository uses for its collection keys.
func (r *Repository) Locker() keylock.Locker { return r.locker }

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

// Categories returns the stored categories, or an empty slice when none
// have been written.
func (r *Repository) Categories(ctx context.Context) ([]types.Category, error) {
	return load[types.Category](ctx, r.store, types.CategoriesKey)
}

// Links returns the stored links, or an empty slice when none have been
// written.
func (r *Repository) Links(ctx context.Context) ([]types.Link, error) {
	return load[types.Link](ctx, r.store, types.LinksKey)
}

// InsertCategory assigns a fresh id to c, adds it, and re-sorts the
// collection by descending order.
func (r *Repository) InsertCategory(ctx context.Context, c types.Category) error {
	id, err := r.newID()
	if err != nil {
		return err
	}
	c.ID = id
	return modify(ctx, r, types.CategoriesKey, func(items []types.Category) ([]types.Category, error) {
		items = append(items, c)
		sortByOrder(items, categoryOrder)
		return items, nil
	})
}

// InsertLink assigns a fresh id to l, adds it, and re-sorts the collection
// by descending order.
func (r *Repository) InsertLink(ctx context.Context, l types.Link) error {
	id, err := r.newID()
	if err != nil {
		return err
	}
	l.ID = id
	return modify(ctx, r, types.LinksKey, func(items []types.Link) ([]types.Link, error) {
		items = append(items, l)
		sortByOrder(items, linkOrder)
		return items, nil
	})
}

// UpdateCategory merges p into the category with id using
// mergeCategoryFields. Returns ErrNotFound, without writing, when no
// category has that id.
func (r *Repository) UpdateCategory(ctx context.Context, id string, p types.CategoryPatch) error {
	return modify(ctx, r, types.CategoriesKey, func(items []types.Category) ([]types.Category, error) {
		i := indexOf(items, id, categoryID)
		if i < 0 {
			return nil, fmt.Errorf("%w: category %s", types.ErrNotFound, id)
		}
		items[i] = mergeCategoryFields(items[i], p)
		sortByOrder(items, categoryOrder)
		return items, nil
	})
}

// UpdateLink merges p into the link with id using mergeLinkFields. Returns
// ErrNotFound, without writing, when no link has that id.
func (r *Repository) UpdateLink(ctx context.Context, id string, p types.LinkPatch) error {
	return modify(ctx, r, types.LinksKey, func(items []types.Link) ([]types.Link, error) {
		i := indexOf(items, id, linkID)
		if i < 0 {
			return nil, fmt.Errorf("%w: link %s", types.ErrNotFound, id)
		}
		items[i] = mergeLinkFields(items[i], p)
		sortByOrder(items, linkOrder)
		return items, nil
	})
}

// DeleteCategory removes the category with id. The collection is written
// even when id is absent. Links that reference the category are kept.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return modify(ctx, r, types.CategoriesKey, func(items []types.Category) ([]types.Category, error) {
		return without(items, id, categoryID), nil
	})
}

// DeleteLink removes the link with id. The collection is written even when
// id is absent.
func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	return modify(ctx, r, types.LinksKey, func(items []types.Link) ([]types.Link, error) {
		return without(items, id, linkID), nil
	})
}

// ReorderCategories rewrites the categories in the sequence given by ids.
// Unknown ids are dropped, as are categories not named in ids. Order fields
// are left as they were and the result is not re-sorted.
func (r *Repository) ReorderCategories(ctx context.Context, ids []string) error {
	return modify(ctx, r, types.CategoriesKey, func(items []types.Category) ([]types.Category, error) {
		byID := make(map[string]types.Category, len(items))
		for _, c := range items {
			byID[c.ID] = c
		}
		out := make([]types.Category, 0, len(ids))
		for _, id := range ids {
			if c, ok := byID[id]; ok {
				out = append(out, c)
			}
		}
		return out, nil
	})
}

// ReplaceAll overwrites both collections with two concurrent writes. The
// writes are independent: if one fails the other may still have landed.
func (r *Repository) ReplaceAll(ctx context.Context, categories, links json.RawMessage) error {
	unlock, err := keylock.LockAll(ctx, r.locker, types.CategoriesKey, types.LinksKey)
	if err != nil {
		return err
	}
	defer unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return putRaw(gctx, r.store, types.CategoriesKey, categories) })
	g.Go(func() error { return putRaw(gctx, r.store, types.LinksKey, links) })
	return g.Wait()
}

// modify runs one read-modify-write cycle on key. When fn returns an error
// nothing is written.
func modify[T any](ctx context.Context, r *Repository, key string, fn func([]T) ([]T, error)) error {
	unlock, err := r.locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	items, err := load[T](ctx, r.store, key)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return save(ctx, r.store, key, items)
}

func load[T any](ctx context.Context, store types.Store, key string) ([]T, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, types.ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrStoreFailure, key, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", types.ErrStoreFailure, key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, store types.Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%w: writing %s: %w", types.ErrStoreFailure, key, err)
	}
	return nil
}

// putRaw writes raw verbatim. A nil value is stored as JSON null.
func putRaw(ctx context.Context, store types.Store, key string, raw json.RawMessage) error {
	if raw == nil {
		raw = json.RawMessage("null")
	}
	if err := store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: writing %s: %w", types.ErrStoreFailure, key, err)
	}
	return nil
}

// sortByOrder sorts items by descending order. Equal orders keep their
// relative position.
func sortByOrder[T any](items []T, order func(T) types.Order) {
	sort.SliceStable(items, func(i, j int) bool {
		return order(items[i]) > order(items[j])
	})
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

func without[T any](items []T, id string, idOf func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	return out
}

func categoryID(c types.Category) string { return c.ID }
func categoryOrder(c types.Category) types.Order { return c.Order }
func linkID(l types.Link) string { return l.ID }
func linkOrder(l types.Link) types.Order { return l.Order }
