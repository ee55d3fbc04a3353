//go:build debug

package debug

// Debug is true when the debug build tag is set; error paths then keep
// full file paths and internal frames in reported stacks.
const Debug = true
