package leaselock

import "testing"

func TestProjectKey(t *testing.T) {
	t.Parallel()

	if got := ProjectKey("abc"); got != "project:abc" {
		t.Fatalf("ProjectKey(%q) = %q", "abc", got)
	}
}
