// Package config provides the settings boundary of crossbuild.
//
// Settings are read-only key→value lookups (installation directories,
// tool prefixes, template locations) plus a subscription that reports
// which keys changed. Nothing in crossbuild writes settings; they come
// from a TOML file that is polled for changes, with environment variable
// overrides:
//
//	# ~/.config/crossbuild/settings.toml
//	[toolchains.gcc]
//	installDir = "/opt/gcc-arm-none-eabi"
//	prefix = "arm-none-eabi-"
//
//	[toolchains.sdcc]
//	installDir = "/usr/local"
//
// Keys are flattened to dotted paths ("toolchains.gcc.installDir").
// CROSSBUILD_TOOLCHAINS_GCC_INSTALLDIR overrides the key above.
//
// # Sub-packages
//
//   - loader: TOML file and environment variable sources
//   - watcher: polling file watcher for live reload
//   - notify: named change notification with merge windows
package config
