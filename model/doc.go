// Package model defines the provider-agnostic completion interface consumed
// by the turn executor, plus a ScriptedModel for tests and examples. Vendor
// adapters live in the openai and anthropic subpackages.
package model
