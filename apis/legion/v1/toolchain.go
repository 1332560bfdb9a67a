package v1

import "strings"

// KnownToolchains is the set of toolchain names a ModelTraining spec
// may declare. Only "python" is supported today; the bootstrapper
// dispatches on the entrypoint's file extension within that toolchain.
var KnownToolchains = map[string]bool{
	"python": true,
}

// IsKnownToolchain reports whether name is a supported toolchain.
func IsKnownToolchain(name string) bool {
	return KnownToolchains[name]
}

// IsToolchainAllowed reports whether name is permitted, consulting the
// operator's configured allow-list override first and falling back to
// the compiled-in registry when no override is set.
func IsToolchainAllowed(name string, configuredOverride []string) bool {
	if len(configuredOverride) == 0 {
		return IsKnownToolchain(name)
	}
	for _, allowed := range configuredOverride {
		if allowed == name {
			return true
		}
	}
	return false
}

// entrypointExtensions maps each toolchain to the entrypoint file
// extensions it knows how to run.
var entrypointExtensions = map[string]map[string]bool{
	"python": {
		".py":    true,
		".pyc":   true,
		".ipynb": true,
	},
}

// IsEntrypointSupported reports whether the given entrypoint path has
// an extension the toolchain recognizes.
func IsEntrypointSupported(toolchain, entrypoint string) bool {
	exts, ok := entrypointExtensions[toolchain]
	if !ok {
		return false
	}
	idx := strings.LastIndex(entrypoint, ".")
	if idx < 0 {
		return false
	}
	return exts[strings.ToLower(entrypoint[idx:])]
}
