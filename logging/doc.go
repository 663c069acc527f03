// Package logging defines the Logger interface consumed across ResearchMesh
// plus slog-backed implementations. Components accept a Logger and default to
// NoOpLogger so logging never becomes a hard dependency.
package logging
