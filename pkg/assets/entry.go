package assets

import "context"

// Entry pairs a loaded asset with its project-relative path
type Entry[T any] struct {
	Path  string
	Asset *T
}

// KindOf returns the asset kind of the record type T
func KindOf[T any, PT interface {
	*T
	Record
}]() string {
	var zero T
	return PT(&zero).AssetKind()
}

// FindAll loads every asset of T's kind under root. Assets that fail to load
// are logged and skipped.
func FindAll[T any, PT interface {
	*T
	Record
}](ctx context.Context, s *Store, root string) ([]Entry[T], error) {
	paths, err := s.Find(ctx, root, KindOf[T, PT]())
	if err != nil {
		return nil, err
	}

	entries := make([]Entry[T], 0, len(paths))
	for _, p := range paths {
		v := new(T)
		if err := s.Load(p, PT(v)); err != nil {
			s.log.Warnf("Failed to load asset %s: %v", p, err)
			continue
		}
		entries = append(entries, Entry[T]{Path: p, Asset: v})
	}

	return entries, nil
}
