// Package config loads starhook settings.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults (Default)
//  2. a TOML file, starhook.toml in the working directory unless a path
//     is given
//  3. STARHOOK_* environment variables
//
// Example starhook.toml:
//
//	[log]
//	level = "debug"
//	format = "console"
//
//	[patch]
//	manifest = "manifests/galimulator-4.10.toml"
//	out_dir = "patched"
//
//	[extensions]
//	dir = "extensions"
//	timeout = "500ms"
//
//	[watch]
//	debounce = "250ms"
package config
