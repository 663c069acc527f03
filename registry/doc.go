// Package registry holds the immutable agent definitions of a research
// deployment and the tool instances they may call. Every declared handoff
// target and tool name must resolve at construction time; a dangling
// reference fails fast with ConfigurationError instead of surfacing as a
// runtime handoff bug. Definitions can be supplied in code or loaded from a
// YAML configuration file.
package registry
