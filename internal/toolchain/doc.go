// Package toolchain models the compiler families crossbuild supports.
//
// Every family is a Descriptor: one implementation per Name that knows
// the family's installation layout, include and library paths,
// predefined macros, factory option document and pre-build option
// normalization. The Registry owns exactly one live Descriptor per Name,
// resolves which toolchain a project kind may use, rebuilds descriptors
// when their settings change and migrates persisted option documents
// whose schema version is stale.
//
// Option documents have four fixed regions (global, c/cpp-compiler,
// asm-compiler, linker) whose keys belong to the owning family. Keys
// starting with '$' are derived by NormalizeOptions and are never part
// of a family's factory defaults.
package toolchain
