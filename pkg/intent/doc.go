// Package intent defines the backend-agnostic policy document: users,
// applications, segments, egress behavior, and access rules.
//
// A Policy is the intermediate representation the whole pipeline operates
// on. It is parsed once from YAML (LoadPolicy), flows read-only through
// validate, compile, and apply, and is never mutated by a backend. Shape
// checks live here; backend-specific constraints live with each backend.
package intent
