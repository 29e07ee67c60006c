// Package assets provides the file-backed record store that cog operates on.
//
// # Overview
//
// Every record lives in a YAML file with the .asset extension. The top-level
// "kind" field names the record type and "guid" gives it a stable identity:
//
//	kind: AndroidPlatformConfiguration
//	guid: 1f0e6c1a-8d0b-4a59-9f7c-3a3b7d0e4c11
//	dependencies:
//	  - group: com.google.android.gms
//	    artifact: play-services-games
//	    version: 23.1.0
//
// Paths passed to the store are project-relative and use forward slashes.
//
// # Finding Assets
//
// Find walks a directory and returns the sorted paths of assets of one kind.
// FindAll does the same and loads each record:
//
//	configs, err := assets.FindAll[platform.AndroidConfiguration](ctx, store, root)
//
// Kind sniffing is cached in an expirable LRU keyed by path, modification
// time and size, so edited files are re-read automatically.
//
// # Templates
//
// Template assets end in "Template.asset". EditablePath maps a template file
// name to the name of its editable copy.
package assets
