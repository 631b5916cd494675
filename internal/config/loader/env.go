package loader

import (
	"os"
	"strings"
)

// EnvLoader overrides settings from environment variables.
//
// A key is overridden by the variable named after it: the prefix followed
// by the key upper-cased with dots replaced by underscores, so
// "toolchains.gcc.installDir" reads CROSSBUILD_TOOLCHAINS_GCC_INSTALLDIR.
// Explicit mappings take precedence for keys that need a shorter name.
type EnvLoader struct {
	prefix  string            // e.g. "CROSSBUILD_"
	mapping map[string]string // env var -> settings key
	lookup  func(string) (string, bool)
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "CROSSBUILD_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		lookup:  os.LookupEnv,
	}
}

// AddMapping maps an environment variable to a settings key.
func (l *EnvLoader) AddMapping(envVar, key string) {
	l.mapping[envVar] = key
}

// EnvName returns the variable consulted for key.
func (l *EnvLoader) EnvName(key string) string {
	return l.prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Overlay returns base with every key that has a matching environment
// variable replaced. base is not modified.
func (l *EnvLoader) Overlay(base map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
		if env, ok := l.lookup(l.EnvName(k)); ok {
			out[k] = env
		}
	}
	for envVar, key := range l.mapping {
		if env, ok := l.lookup(envVar); ok {
			out[key] = env
		}
	}
	return out
}
