package ios

import (
	"fmt"

	"github.com/platinummonkey/cog/pkg/ios/pbxproj"
	"github.com/platinummonkey/cog/pkg/platform"
)

const (
	gameCenterKey        = "com.apple.developer.game-center"
	ubiquityKVStoreKey   = "com.apple.developer.ubiquity-kvstore-identifier"
	ubiquityKVStoreValue = "$(TeamIdentifierPrefix)$(CFBundleIdentifier)"
	apsEnvironmentKey    = "aps-environment"
	backgroundModesKey   = "UIBackgroundModes"
	remoteNotification   = "remote-notification"
)

// CollectCapabilities returns the declared capability types in first-seen
// order and the merged associated domain entries. AssociatedDomains is
// included only when at least one domain was collected.
func CollectCapabilities(configs []*platform.IosConfiguration) ([]platform.CapabilityType, []string) {
	var types []platform.CapabilityType
	seenTypes := make(map[platform.CapabilityType]bool)
	addType := func(t platform.CapabilityType) {
		if !seenTypes[t] {
			seenTypes[t] = true
			types = append(types, t)
		}
	}

	var domains []string
	seenDomains := make(map[string]bool)
	addDomains := func(list []platform.AssociatedDomain) {
		for _, e := range domainEntries(list) {
			if !seenDomains[e] {
				seenDomains[e] = true
				domains = append(domains, e)
			}
		}
	}

	for _, cfg := range configs {
		for _, c := range cfg.Capabilities {
			if c.Type == platform.AssociatedDomains {
				addDomains(c.AssociatedDomains)
				continue
			}
			addType(c.Type)
		}
		addDomains(cfg.AssociatedDomains)
	}

	if len(domains) > 0 {
		addType(platform.AssociatedDomains)
	}
	return types, domains
}

func applyCapabilities(project *pbxproj.Project, mainTarget string, entitlements, info *plistFile, configs []*platform.IosConfiguration, opts PostBuildOptions) ([]platform.CapabilityType, error) {
	types, domains := CollectCapabilities(configs)

	for _, t := range types {
		var err error
		switch t {
		case platform.GameCenter:
			entitlements.root[gameCenterKey] = true
			err = enable(project, mainTarget, "com.apple.GameCenter", "GameKit.framework")
		case platform.ICloud:
			entitlements.root[ubiquityKVStoreKey] = ubiquityKVStoreValue
			err = enable(project, mainTarget, "com.apple.iCloud", "")
		case platform.InAppPurchase:
			err = enable(project, mainTarget, "com.apple.InAppPurchase", "StoreKit.framework")
		case platform.PushNotifications:
			env := "production"
			if opts.Development {
				env = "development"
			}
			entitlements.root[apsEnvironmentKey] = env
			if info != nil {
				info.appendUnique(backgroundModesKey, remoteNotification)
			}
			if err = enable(project, mainTarget, "com.apple.Push", ""); err == nil {
				err = enable(project, mainTarget, "com.apple.BackgroundModes", "")
			}
		case platform.AssociatedDomains:
			entitlements.appendUnique(associatedDomainsKey, domains...)
			err = enable(project, mainTarget, "com.apple.SafariKeychain", "")
		default:
			return nil, NewNotImplementedError(fmt.Sprintf("capability %s", t))
		}
		if err != nil {
			return nil, err
		}
	}

	return types, nil
}

func enable(project *pbxproj.Project, target, capability, framework string) error {
	if framework != "" {
		if err := project.AddFrameworkToProject(target, framework, false); err != nil {
			return err
		}
	}
	return project.AddSystemCapability(target, capability)
}
