// Package testingx provides helpers for use with the testing package.
package testingx

import "testing"

// Must unwraps the result of a call that is expected to succeed in test
// setup, failing the test right away otherwise.
//
// Use it for fixtures such as manifests, stores and sessions that the test
// presumes to be correct. It MUST NOT be used to check the behavior under
// test, since its failure message says nothing about what was expected.
//
//	m := testingx.Must[*build.Manifest](t)(build.LoadManifest(path))
func Must[T any](t testing.TB) func(v T, err error) T {
	return func(v T, err error) T {
		t.Helper()
		if err != nil {
			t.Fatalf("Got: unexpected error in test setup: %s. Want: no error.", err)
		}
		return v
	}
}
