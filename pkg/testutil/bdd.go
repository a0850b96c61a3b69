package testutil

import "testing"

// Given, When, and Then run scenario steps as named subtests. Steps share
// state through the enclosing test, so once a step fails the remaining
// steps are skipped rather than failing on a half-built fixture.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then "+desc, fn)
}

func step(t *testing.T, name string, fn func(t *testing.T)) bool {
	t.Helper()
	if t.Failed() {
		return t.Run(name, func(t *testing.T) { t.Skip("skipped: an earlier step failed") })
	}
	return t.Run(name, fn)
}
