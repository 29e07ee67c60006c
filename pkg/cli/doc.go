// Package cli implements the cog command-line interface.
//
// Every command accepts -project (default ".") and reads the project's
// configuration from cog.yaml and COG_* environment variables.
//
// sync: create or update a product's settings, then apply feature activation
// and the configuration updaters
//
//	cog sync -product EssentialKit
//
// prebuild: generate AndroidDependencies.xml, the library manifest, or
// IosDependencies.xml
//
//	cog prebuild -target android
//
// postbuild: patch the exported project
//
//	cog postbuild -target ios -output ./Builds/iOS -development
//
// cleanup: drop settings entries of removed features
//
//	cog cleanup -root Assets/Plugins/VoxelBusters/EssentialKit
//
// activate, validate and inspect:
//
//	cog activate -product EssentialKit
//	cog validate
//	cog inspect -product EssentialKit
package cli
