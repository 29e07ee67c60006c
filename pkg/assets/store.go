package assets

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// Extension is the file extension of every asset record
	Extension = ".asset"

	// TemplateSuffix marks read-only template assets ("FooTemplate.asset")
	TemplateSuffix = "Template.asset"
)

// Header is embedded inline by every asset record
type Header struct {
	Kind string `yaml:"kind"`
	GUID string `yaml:"guid,omitempty"`
}

// AssetHeader returns the embedded header
func (h *Header) AssetHeader() *Header {
	return h
}

// Record is implemented by every type that can be persisted in the store
type Record interface {
	AssetHeader() *Header
	AssetKind() string
}

// CacheObserver receives kind-cache hit/miss notifications
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// Options configures a Store
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Metrics   CacheObserver
	Logger    *logrus.Logger
}

// Store is a file-backed asset store scoped to a project tree. Asset paths are
// project-relative and use forward slashes, e.g. "Assets/Plugins/Foo/Bar.asset".
type Store struct {
	root    string
	kinds   *lru.LRU[string, string]
	metrics CacheObserver
	log     *logrus.Logger
}

// NewStore creates a store rooted at the project directory
func NewStore(root string, opts Options) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", root)
	}

	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	return &Store{
		root:    root,
		kinds:   lru.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL),
		metrics: opts.Metrics,
		log:     opts.Logger,
	}, nil
}

// Root returns the project root directory
func (s *Store) Root() string {
	return s.root
}

// Logger returns the store's logger
func (s *Store) Logger() *logrus.Logger {
	return s.log
}

// Abs converts a project-relative asset path to a filesystem path
func (s *Store) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Rel converts a filesystem path back to a project-relative asset path
func (s *Store) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Exists reports whether a regular file exists at the asset path
func (s *Store) Exists(p string) bool {
	info, err := os.Stat(s.Abs(p))
	return err == nil && !info.IsDir()
}

// DirExists reports whether a directory exists at the asset path
func (s *Store) DirExists(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(s.Abs(p))
	return err == nil && info.IsDir()
}

// Find returns the sorted paths of all assets of the given kind under root.
// A missing root yields no results and no error.
func (s *Store) Find(ctx context.Context, root, kind string) ([]string, error) {
	if !s.DirExists(root) {
		s.log.Debugf("Asset root does not exist: %s", root)
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(s.Abs(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Extension) {
			return nil
		}

		rel, err := s.Rel(path)
		if err != nil {
			return err
		}

		got, err := s.Kind(rel)
		if err != nil {
			s.log.Warnf("Skipping unreadable asset %s: %v", rel, err)
			return nil
		}
		if got == kind {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Kind returns the kind of the asset at p. Results are cached by path,
// modification time and size.
func (s *Store) Kind(p string) (string, error) {
	abs := s.Abs(p)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewAssetNotFoundError(p)
		}
		return "", err
	}

	key := fmt.Sprintf("%s|%d|%d", abs, info.ModTime().UnixNano(), info.Size())
	if kind, ok := s.kinds.Get(key); ok {
		s.recordHit()
		return kind, nil
	}
	s.recordMiss()

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}

	var header Header
	if err := yaml.Unmarshal(data, &header); err != nil {
		return "", NewInvalidAssetError(p, err)
	}

	s.kinds.Add(key, header.Kind)
	return header.Kind, nil
}

// Load reads the asset at p into rec and checks its kind
func (s *Store) Load(p string, rec Record) error {
	data, err := os.ReadFile(s.Abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return NewAssetNotFoundError(p)
		}
		return fmt.Errorf("failed to read asset: %w", err)
	}

	if err := yaml.Unmarshal(data, rec); err != nil {
		return NewInvalidAssetError(p, err)
	}

	if got := rec.AssetHeader().Kind; got != rec.AssetKind() {
		return NewKindMismatchError(p, rec.AssetKind(), got)
	}

	return nil
}

// Save writes rec to p, filling in the kind and a guid when missing
func (s *Store) Save(p string, rec Record) error {
	header := rec.AssetHeader()
	header.Kind = rec.AssetKind()
	if header.GUID == "" {
		header.GUID = uuid.NewString()
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}

	return s.WriteFile(p, data)
}

// Copy duplicates the asset at src to dst and assigns the copy a new guid
func (s *Store) Copy(src, dst string) error {
	data, err := os.ReadFile(s.Abs(src))
	if err != nil {
		if os.IsNotExist(err) {
			return NewAssetNotFoundError(src)
		}
		return fmt.Errorf("failed to read asset: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return NewInvalidAssetError(src, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return NewInvalidAssetError(src, fmt.Errorf("top-level value is not a mapping"))
	}

	setMappingValue(doc.Content[0], "guid", uuid.NewString())

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal asset copy: %w", err)
	}

	return s.WriteFile(dst, out)
}

// Delete removes the asset at p
func (s *Store) Delete(p string) error {
	if err := os.Remove(s.Abs(p)); err != nil {
		if os.IsNotExist(err) {
			return NewAssetNotFoundError(p)
		}
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// ReadFile reads a raw file relative to the project root
func (s *Store) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(s.Abs(p))
}

// WriteFile writes a raw file relative to the project root, creating parents
func (s *Store) WriteFile(p string, data []byte) error {
	abs := s.Abs(p)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	return nil
}

// IsTemplatePath reports whether p names a template asset
func IsTemplatePath(p string) bool {
	return p != "" && strings.HasSuffix(strings.ToLower(p), strings.ToLower(TemplateSuffix))
}

// EditablePath strips the template suffix from a file name:
// "Foo.Template.asset" and "FooTemplate.asset" both become "Foo.asset".
func EditablePath(p string) string {
	if !IsTemplatePath(p) {
		return p
	}
	if strings.HasSuffix(strings.ToLower(p), strings.ToLower("."+TemplateSuffix)) {
		return p[:len(p)-len(TemplateSuffix)-1] + Extension
	}
	return p[:len(p)-len(TemplateSuffix)] + Extension
}

func (s *Store) recordHit() {
	if s.metrics != nil {
		s.metrics.CacheHit()
	}
}

func (s *Store) recordMiss() {
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}
}

func setMappingValue(mapping *yaml.Node, key, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1].Kind = yaml.ScalarNode
			mapping.Content[i+1].Tag = "!!str"
			mapping.Content[i+1].Value = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
