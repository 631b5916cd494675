// Package project manages the multi-target project document.
//
// A project document holds every build target of a project. The active
// target is unpacked at the document root (toolchain, compile config,
// uploader, exclude list) and every other target is frozen in the
// targets catalog. SwitchTarget snapshots the active target into the
// catalog and unpacks another one, so switching A to B and back to A is
// lossless.
//
// In memory all paths are absolute; on disk they are relative to the
// project root. Environment placeholders such as ${SDK_DIR} or %SDK_DIR%
// are never rewritten.
//
// Two dependence groups are rebuilt at load time and never persisted in
// dependenceList:
//
//   - "built-in": the toolchain's default include paths and custom macros
//   - "custom": the active target's user-edited dependence
//
// Files kept next to the document under .crossbuild/:
//
//	project.json                        the project document
//	user.ctx.json                       last active target, not versioned
//	<target>.<toolchain>.options.json   option documents of inactive toolchains
package project
