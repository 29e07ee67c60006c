package platform

import (
	"context"
	"path"
	"strings"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/product"
)

// GetOrCreateEditableConfigs makes sure every template configuration of T's
// kind under templateRoot has an editable copy under editableRoot, then
// returns the editable configurations. Existing editable files are never
// overwritten. An empty editableRoot yields no configurations.
func GetOrCreateEditableConfigs[T any, PT interface {
	*T
	Configuration
}](ctx context.Context, store *assets.Store, templateRoot, editableRoot string) ([]assets.Entry[T], error) {
	if editableRoot == "" {
		return nil, nil
	}

	if templateRoot != "" {
		if err := ensureEditableCopies[T, PT](ctx, store, templateRoot, editableRoot); err != nil {
			return nil, err
		}
	}

	entries, err := assets.FindAll[T, PT](ctx, store, editableRoot)
	if err != nil {
		return nil, err
	}

	configs := entries[:0]
	for _, e := range entries {
		if assets.IsTemplatePath(e.Path) {
			continue
		}
		configs = append(configs, e)
	}
	return configs, nil
}

func ensureEditableCopies[T any, PT interface {
	*T
	Configuration
}](ctx context.Context, store *assets.Store, templateRoot, editableRoot string) error {
	templateRoot = strings.TrimSuffix(product.NormalizePath(templateRoot), "/")
	editableRoot = strings.TrimSuffix(product.NormalizePath(editableRoot), "/")

	templates, err := store.Find(ctx, templateRoot, assets.KindOf[T, PT]())
	if err != nil {
		return err
	}

	log := store.Logger()
	for _, templatePath := range templates {
		target := EditablePathFor(templatePath, templateRoot, editableRoot)
		if target == "" || target == templatePath {
			continue
		}
		if store.Exists(target) {
			continue
		}

		if err := store.Copy(templatePath, target); err != nil {
			return err
		}
		log.Infof("Created editable configuration %s from %s", target, templatePath)
	}

	return nil
}

// EditablePathFor mirrors a template path from templateRoot into editableRoot
// and strips the template suffix from the file name. Paths outside
// templateRoot map to "".
func EditablePathFor(templatePath, templateRoot, editableRoot string) string {
	templatePath = product.NormalizePath(templatePath)
	if !isPathUnderRoot(templatePath, templateRoot) {
		return ""
	}

	rel := strings.TrimPrefix(strings.TrimPrefix(templatePath, templateRoot), "/")
	dir, file := path.Split(rel)
	return path.Join(editableRoot, dir, assets.EditablePath(file))
}

func isPathUnderRoot(p, root string) bool {
	if p == "" || root == "" {
		return false
	}
	root = strings.TrimSuffix(root, "/")
	return p == root || strings.HasPrefix(p, root+"/")
}
