package main

import "testing"

func TestVersion_defaultAndOverridable(t *testing.T) {
	if version != "dev" {
		t.Fatalf("version = %q; want dev in untagged builds", version)
	}
	// -X main.version only applies to a string variable.
	old := version
	t.Cleanup(func() { version = old })
	version = "1.2.3"
	if version != "1.2.3" {
		t.Fatalf("version = %q after override", version)
	}
}
