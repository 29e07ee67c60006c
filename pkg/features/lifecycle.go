package features

import (
	"context"
	"fmt"

	"github.com/platinummonkey/cog/pkg/product"
)

// LoadOrCreateProductSettings loads the product's settings asset, creating it
// when missing, and brings it up to date: descriptor link, general and
// resources sections, and the feature list.
func (s *Store) LoadOrCreateProductSettings(ctx context.Context, p Product) (*product.Settings, Result, error) {
	if p.Descriptor == nil {
		s.log.Warn("[PluginProductSettingsUtility] Descriptor is null; cannot load settings.")
		return nil, Result{}, nil
	}

	settingsPath := p.SettingsPath()
	if settingsPath == "" {
		s.log.Warnf("[PluginProductSettingsUtility] Invalid settings asset path for '%s'.", p.CodeName())
		return nil, Result{}, nil
	}

	settings := &product.Settings{}
	dirty := false
	if s.assets.Exists(settingsPath) {
		if err := s.assets.Load(settingsPath, settings); err != nil {
			return nil, Result{}, fmt.Errorf("failed to load product settings: %w", err)
		}
	} else {
		s.log.Infof("Creating product settings for %s at %s", p.CodeName(), settingsPath)
		dirty = true
	}

	if ensureDescriptorLink(settings, p.Descriptor) {
		dirty = true
	}

	if s.ensureGeneralAndResourcesSettings(settings, p.Descriptor) {
		dirty = true
	}

	result, err := s.reconcileFeatures(ctx, p, settings)
	if err != nil {
		return nil, result, err
	}

	if dirty || result.Changed() {
		if err := s.assets.Save(settingsPath, settings); err != nil {
			return nil, result, fmt.Errorf("failed to save product settings: %w", err)
		}
	}

	return settings, result, nil
}

// TryLoadProductSettings loads existing product settings. It returns nil
// without error when the settings asset does not exist.
func (s *Store) TryLoadProductSettings(ctx context.Context, p Product) (*product.Settings, error) {
	if p.Descriptor == nil {
		return nil, nil
	}

	settingsPath := p.SettingsPath()
	if settingsPath == "" || !s.assets.Exists(settingsPath) {
		return nil, nil
	}

	settings := &product.Settings{}
	if err := s.assets.Load(settingsPath, settings); err != nil {
		return nil, fmt.Errorf("failed to load product settings: %w", err)
	}
	ensureDescriptorLink(settings, p.Descriptor)

	return settings, nil
}

// GetFeatureSettings returns the settings' features ordered by code name
func GetFeatureSettings(settings *product.Settings) []product.FeatureSettings {
	if settings == nil {
		return nil
	}
	return settings.SortedFeatures()
}

// CleanupMissingFeatures reconciles the settings of the product whose
// descriptor lives under productRoot. Products without settings are left alone.
func (s *Store) CleanupMissingFeatures(ctx context.Context, productRoot string) (Result, error) {
	p, err := s.FindProductInRoot(ctx, productRoot)
	if err != nil || p == nil {
		return Result{}, err
	}

	settings, err := s.TryLoadProductSettings(ctx, *p)
	if err != nil || settings == nil {
		return Result{}, err
	}

	return s.EnsureFeatureSettings(ctx, *p, settings)
}

// LogMissingSettingsWarnings warns once for every product that has no
// settings asset yet
func (s *Store) LogMissingSettingsWarnings(ctx context.Context, products []Product, logContext string) int {
	if logContext == "" {
		logContext = "PluginProductSettings"
	}

	missing := 0
	for _, p := range products {
		if p.Descriptor == nil {
			continue
		}
		settings, err := s.TryLoadProductSettings(ctx, p)
		if err == nil && settings != nil {
			continue
		}

		name := p.Descriptor.Name()
		s.log.Warnf("[%s] Settings not found for '%s'. Run `cog sync -product %s` to create and configure them.",
			logContext, name, p.CodeName())
		missing++
	}
	return missing
}

func ensureDescriptorLink(settings *product.Settings, d *product.Descriptor) bool {
	ref := d.Ref()
	if settings.Descriptor == ref {
		return false
	}
	settings.Descriptor = ref
	return true
}

func (s *Store) ensureGeneralAndResourcesSettings(settings *product.Settings, d *product.Descriptor) bool {
	changed := false

	if settings.General == nil {
		block := &product.SettingsBlock{}
		if d.GeneralSettingsTemplate != "" {
			var tmpl product.GeneralSettingsTemplate
			if err := s.assets.Load(d.GeneralSettingsTemplate, &tmpl); err != nil {
				s.log.Warnf("[PluginProductSettingsUtility] General settings template for '%s' could not be loaded: %v", d.CodeName, err)
			} else {
				block = tmpl.SettingsBlock.Clone()
			}
		}
		settings.General = block
		changed = true
	}

	if settings.Resources == nil {
		block := &product.SettingsBlock{}
		if d.ResourcesSettingsTemplate != "" {
			var tmpl product.ResourcesSettingsTemplate
			if err := s.assets.Load(d.ResourcesSettingsTemplate, &tmpl); err != nil {
				s.log.Warnf("[PluginProductSettingsUtility] Resources settings template for '%s' could not be loaded: %v", d.CodeName, err)
			} else {
				block = tmpl.SettingsBlock.Clone()
			}
		}
		settings.Resources = block
		changed = true
	}

	return changed
}
