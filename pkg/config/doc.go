// Package config loads service configuration in three layers: built-in
// defaults, an optional YAML file, and TROOP_-prefixed environment
// variables, with later layers winning. Watch re-reads the YAML file on
// change and applies the log level to the running logger, so verbosity can
// be adjusted without a restart.
package config
