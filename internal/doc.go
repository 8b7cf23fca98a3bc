// Package internal holds shared helpers for the stampauth engine that must not
// become part of the public API.
package internal
