/*
Package config centralizes the handful of tunables the pipeline reads at
startup, backed by schuko/gconf the same way lr/earley/parsetree.go reads
its "panic-on-parser-stuck" flag in this codebase's ancestor: a flat
string-keyed store the embedding program can pre-populate (environment,
flags, a config file) before the pipeline runs, with a Go-side default
applied whenever the key was never set.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package config

import (
	"github.com/npillmayer/schuko/gconf"
)

// Keys read from gconf. An embedding CLI sets these (via flags, env, or
// a config file) before invoking the pipeline; anything left unset falls
// back to the constant default below.
const (
	KeyMaxFrameDepth = "pdp.max-frame-depth"
	KeyIndentWidth   = "pdp.indent-width"
	KeyOutputDir     = "pdp.output-dir"
)

const (
	defaultMaxFrameDepth = 1000
	defaultIndentWidth   = 4
	defaultOutputDir     = "pdp_out"
)

// MaxFrameDepth is the VM's call-depth ceiling before StackOverflowError.
func MaxFrameDepth() int {
	if n := gconf.GetInt(KeyMaxFrameDepth); n > 0 {
		return n
	}
	return defaultMaxFrameDepth
}

// IndentWidth is the number of spaces one INDENT token represents.
func IndentWidth() int {
	if n := gconf.GetInt(KeyIndentWidth); n > 0 {
		return n
	}
	return defaultIndentWidth
}

// OutputDir reports the configured output directory. Package artifact
// does not read it: its writers always use artifact.Dir.
func OutputDir() string {
	if s := gconf.GetString(KeyOutputDir); s != "" {
		return s
	}
	return defaultOutputDir
}
