// Package store provides in-memory reference implementations of the
// persistence contracts: core.SessionStore (session snapshots saved at every
// state transition) and core.DocumentStore (session-scoped fetched
// documents). Durable backends implement the same interfaces.
package store
