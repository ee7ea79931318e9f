// Package config loads, normalizes, and validates xia2pipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML or YAML files, and honours environment fallbacks such
// as X2P_RESULTS_ROOT and X2P_CATALOGUE_DSN. The Config type centralizes every
// knob the passes need and is loaded once at process start; components receive
// it explicitly at construction and never look configuration up on their own.
package config
