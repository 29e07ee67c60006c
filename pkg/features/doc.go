// Package features keeps a product's settings asset in step with the feature
// descriptors shipped under its root.
//
// # Overview
//
// A product root looks like:
//
//	Assets/Plugins/EssentialKit/
//	  EssentialKit.asset                 (PluginProductDescriptor)
//	  Features/Sharing/Sharing.asset     (FeatureDescriptor)
//	  Features/Sharing/SharingSettingsTemplate.asset
//
// EnsureFeatureSettings produces exactly one FeatureSettings entry per valid
// feature code name, ordered by code name. Entries for deleted or duplicated
// features are dropped, existing entries keep their values, and new entries
// come from the factory table, falling back to the descriptor's settings
// template. Running it twice with unchanged descriptors changes nothing.
//
// # Registries
//
// SettingsIndex and BootstrapRegistry are explicit objects, constructed per
// session, that map feature settings types to loaded settings and startup hooks.
//
// # Configuration Updaters
//
// A platform configuration may name an updater. RunConfigurationUpdaters
// looks the name up in an UpdaterTable and lets the updater rewrite the
// configuration from the feature's settings.
package features
