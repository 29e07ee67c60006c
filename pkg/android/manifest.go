package android

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/xmlwriter"
)

const (
	AndroidNamespace = "http://schemas.android.com/apk/res/android"
	ToolsNamespace   = "http://schemas.android.com/tools"

	manifestHeader = "DONT MODIFY HERE. THIS FILE IS AUTO GENERATED."
)

// ManifestDocument accumulates manifest fragments into a library
// AndroidManifest.xml. Node insertion is first-write-wins: a node whose
// identity already exists is not added again.
type ManifestDocument struct {
	doc         *etree.Document
	root        *etree.Element
	application *etree.Element
}

// NewManifestDocument creates an empty manifest for the given package
func NewManifestDocument(packageName string) *ManifestDocument {
	doc := etree.NewDocument()
	doc.CreateComment(manifestHeader)

	root := doc.CreateElement("manifest")
	m := &ManifestDocument{doc: doc, root: root}
	m.ensureNamespace("android", AndroidNamespace)
	m.ensureNamespace("tools", ToolsNamespace)
	if packageName != "" {
		root.CreateAttr("package", packageName)
	}
	m.application = root.CreateElement("application")

	return m
}

// Document returns the underlying XML document
func (m *ManifestDocument) Document() *etree.Document {
	return m.doc
}

// Bytes renders the manifest with two-space indentation and inline attributes
func (m *ManifestDocument) Bytes() ([]byte, error) {
	return xmlwriter.Bytes(m.doc, xmlwriter.Options{
		Indent:   "  ",
		BOM:      true,
		Encoding: "UTF-8",
		NewLine:  "\n",
	})
}

// Apply merges one feature's manifest configuration. Components and
// attributes come first, then permissions, uses-features, meta-data and queries.
func (m *ManifestDocument) Apply(cfg *platform.ManifestConfiguration) {
	if cfg == nil {
		return
	}

	m.AddManifestAttributes(cfg.ManifestAttributes)
	m.AddApplicationAttributes(cfg.ApplicationAttributes)
	m.AddActivities(cfg.Activities)
	m.AddProviders(cfg.Providers)
	m.AddServices(cfg.Services)
	m.AddReceivers(cfg.Receivers)

	for _, p := range cfg.Permissions {
		if p.Name != "" {
			m.AddUsesPermission(p.Name, p.MaxSdkVersion)
		}
	}
	for _, f := range cfg.Features {
		if f.Name != "" {
			m.AddUsesFeature(f.Name, f.Required)
		}
	}
	for _, md := range cfg.MetaData {
		if md.Name != "" {
			m.AddMetaData(md.Name, md.Value)
		}
	}
	for _, q := range cfg.Queries {
		if q.Action != "" {
			m.AddQuery(q.Action, q.Scheme, q.Host, q.Path)
		}
	}
}

// AddUsesPermission adds a uses-permission node unless one with the same name exists
func (m *ManifestDocument) AddUsesPermission(name, maxSdkVersion string) bool {
	if hasNamedChild(m.root, "uses-permission", name) {
		return false
	}

	el := m.root.CreateElement("uses-permission")
	el.CreateAttr("android:name", name)
	if maxSdkVersion != "" {
		el.CreateAttr("android:maxSdkVersion", maxSdkVersion)
	}
	return true
}

// AddUsesFeature adds a uses-feature node unless one with the same name exists
func (m *ManifestDocument) AddUsesFeature(name string, required bool) bool {
	if hasNamedChild(m.root, "uses-feature", name) {
		return false
	}

	el := m.root.CreateElement("uses-feature")
	el.CreateAttr("android:name", name)
	if required {
		el.CreateAttr("android:required", "true")
	} else {
		el.CreateAttr("android:required", "false")
	}
	return true
}

// AddMetaData adds an application meta-data node unless one with the same name exists
func (m *ManifestDocument) AddMetaData(name, value string) bool {
	if hasNamedChild(m.application, "meta-data", name) {
		return false
	}

	el := m.application.CreateElement("meta-data")
	el.CreateAttr("android:name", name)
	if value != "" {
		el.CreateAttr("android:value", value)
	}
	return true
}

// AddQuery adds a queries/intent entry unless one with the same action and
// data already exists
func (m *ManifestDocument) AddQuery(action, scheme, host, path string) bool {
	queries := m.root.SelectElement("queries")
	if queries == nil {
		queries = m.root.CreateElement("queries")
	}
	if hasQuery(queries, action, scheme, host, path) {
		return false
	}

	intent := queries.CreateElement("intent")
	intent.CreateElement("action").CreateAttr("android:name", action)

	if scheme != "" || host != "" || path != "" {
		data := intent.CreateElement("data")
		if scheme != "" {
			data.CreateAttr("android:scheme", scheme)
		}
		if host != "" {
			data.CreateAttr("android:host", host)
		}
		if path != "" {
			data.CreateAttr("android:path", path)
		}
	}
	return true
}

// AddManifestAttributes sets attributes on the manifest root, overwriting
// existing values
func (m *ManifestDocument) AddManifestAttributes(attrs []platform.ManifestAttribute) {
	for _, a := range attrs {
		if a.Name != "" {
			m.setAttribute(m.root, a.Name, a.Value)
		}
	}
}

// AddApplicationAttributes sets attributes on the application element,
// overwriting existing values
func (m *ManifestDocument) AddApplicationAttributes(attrs []platform.ManifestAttribute) {
	for _, a := range attrs {
		if a.Name != "" {
			m.setAttribute(m.application, a.Name, a.Value)
		}
	}
}

// AddActivities adds activity declarations
func (m *ManifestDocument) AddActivities(components []platform.Component) {
	m.addComponents("activity", components, true)
}

// AddProviders adds provider declarations. Providers carry no intent filters.
func (m *ManifestDocument) AddProviders(components []platform.Component) {
	m.addComponents("provider", components, false)
}

// AddServices adds service declarations
func (m *ManifestDocument) AddServices(components []platform.Component) {
	m.addComponents("service", components, true)
}

// AddReceivers adds broadcast receiver declarations
func (m *ManifestDocument) AddReceivers(components []platform.Component) {
	m.addComponents("receiver", components, true)
}

func (m *ManifestDocument) addComponents(tag string, components []platform.Component, withFilters bool) {
	for _, c := range components {
		if c.Name == "" || hasNamedChild(m.application, tag, c.Name) {
			continue
		}

		el := m.application.CreateElement(tag)
		el.CreateAttr("android:name", c.Name)
		for _, a := range c.Attributes {
			if a.Name == "" || a.Name == "android:name" {
				continue
			}
			m.setAttribute(el, a.Name, a.Value)
		}
		if withFilters {
			addIntentFilters(el, c.IntentFilters)
		}
	}
}

func addIntentFilters(parent *etree.Element, filters []platform.IntentFilter) {
	for _, f := range filters {
		el := parent.CreateElement("intent-filter")
		if f.Label != "" {
			el.CreateAttr("android:label", f.Label)
		}
		if f.AutoVerify {
			el.CreateAttr("android:autoVerify", "true")
		}

		for _, action := range f.Actions {
			if action != "" {
				el.CreateElement("action").CreateAttr("android:name", action)
			}
		}
		for _, category := range f.Categories {
			if category != "" {
				el.CreateElement("category").CreateAttr("android:name", category)
			}
		}
		for _, d := range f.Data {
			if d.IsEmpty() {
				continue
			}
			data := el.CreateElement("data")
			if d.Scheme != "" {
				data.CreateAttr("android:scheme", d.Scheme)
			}
			if d.Host != "" {
				data.CreateAttr("android:host", d.Host)
			}
			if d.Path != "" {
				data.CreateAttr("android:path", d.Path)
			}
			if d.PathPrefix != "" {
				data.CreateAttr("android:pathPrefix", d.PathPrefix)
			}
		}
	}
}

// setAttribute replaces an attribute, moving it to the end of the list.
// "android:" and "tools:" names bind to their namespaces, "xmlns:" names are
// written as given and any other prefix is dropped.
func (m *ManifestDocument) setAttribute(el *etree.Element, name, value string) {
	if strings.HasPrefix(name, "xmlns:") {
		el.CreateAttr(name, value)
		return
	}

	key := name
	if prefix, local, ok := strings.Cut(name, ":"); ok && prefix != "" && local != "" {
		switch prefix {
		case "android":
			m.ensureNamespace("android", AndroidNamespace)
		case "tools":
			m.ensureNamespace("tools", ToolsNamespace)
		default:
			key = local
		}
	}

	removeAttr(el, key)
	el.CreateAttr(key, value)
}

func removeAttr(el *etree.Element, fullKey string) {
	for i := range el.Attr {
		if el.Attr[i].FullKey() == fullKey {
			el.Attr = append(el.Attr[:i], el.Attr[i+1:]...)
			return
		}
	}
}

func (m *ManifestDocument) ensureNamespace(prefix, uri string) {
	key := "xmlns:" + prefix
	if m.root.SelectAttr(key) == nil {
		m.root.CreateAttr(key, uri)
	}
}

func hasNamedChild(parent *etree.Element, tag, name string) bool {
	for _, child := range parent.SelectElements(tag) {
		if a := child.SelectAttr("android:name"); a != nil && a.Value == name {
			return true
		}
	}
	return false
}

func hasQuery(queries *etree.Element, action, scheme, host, path string) bool {
	for _, intent := range queries.SelectElements("intent") {
		actionEl := intent.SelectElement("action")
		if actionEl == nil || actionEl.SelectAttrValue("android:name", "") != action {
			continue
		}

		var existingScheme, existingHost, existingPath string
		if data := intent.SelectElement("data"); data != nil {
			existingScheme = data.SelectAttrValue("android:scheme", "")
			existingHost = data.SelectAttrValue("android:host", "")
			existingPath = data.SelectAttrValue("android:path", "")
		}

		if existingScheme == scheme && existingHost == host && existingPath == path {
			return true
		}
	}
	return false
}
