// Package testutil provides test helpers for mailquery tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - builders.go: form submission builders
//   - files.go: config file fixtures
//   - encoding.go: mis-encoded text samples
package testutil
