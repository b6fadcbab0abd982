package buildinfo

import "testing"

func TestCurrentUsesOverrides(t *testing.T) {
	oldVersion, oldCommit := Version, CommitHash
	defer func() {
		Version, CommitHash = oldVersion, oldCommit
	}()

	Version = "v1.2.3"
	CommitHash = "abc1234"

	info := Current()
	if info.Version != "v1.2.3" {
		t.Fatalf("version = %q, want %q", info.Version, "v1.2.3")
	}
	if info.CommitHash != "abc1234" {
		t.Fatalf("commit hash = %q, want %q", info.CommitHash, "abc1234")
	}
}

func TestCurrentPopulatesUnknowns(t *testing.T) {
	oldVersion, oldCommit := Version, CommitHash
	defer func() {
		Version, CommitHash = oldVersion, oldCommit
	}()

	Version = ""
	CommitHash = ""

	info := Current()
	if info.Version == "" {
		t.Fatal("version should not be empty")
	}
	if info.CommitHash == "" {
		t.Fatal("commit hash should not be empty")
	}
}
