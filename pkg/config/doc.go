// Package config loads cog's configuration.
//
// Values are resolved in three layers: built-in defaults, an optional
// cog.yaml in the project root, then environment variables.
//
//	COG_PROJECT_ROOT="."
//	COG_ASSETS_DIR="Assets"
//	COG_PRODUCTS_ROOT="Assets/Plugins/VoxelBusters"
//	COG_JOURNAL_PATH=".cog/journal.db"   # "off" or empty disables the journal
//	COG_LOG_LEVEL="info"
//	COG_METRICS_ENABLED="true"
//	COG_STATUS_ADDR=":9470"
//	COG_WATCH_DELAY="2s"
//	COG_RESYNC_SCHEDULE="@every 10m"
//	COG_ASSET_CACHE_SIZE="512"
//	COG_ASSET_CACHE_TTL="5m"
//
// The same keys in cog.yaml use camelCase:
//
//	productsRoot: Assets/Plugins/VoxelBusters
//	watchDelay: 500ms
//	resyncSchedule: "@every 10m"
package config
