package ident

import "testing"

func TestOfEmptyYieldsSentinel(t *testing.T) {
	if got := RepoIDOf(""); got != AllRepos {
		t.Errorf("RepoIDOf(\"\") = %q, want %q", got, AllRepos)
	}
	if got := UserIDOf(""); got != AllUsers {
		t.Errorf("UserIDOf(\"\") = %q, want %q", got, AllUsers)
	}
	if got := GroupIDOf(""); got != AllGroups {
		t.Errorf("GroupIDOf(\"\") = %q, want %q", got, AllGroups)
	}
}

func TestValueEquality(t *testing.T) {
	if UserIDOf("u1") != UserIDOf("u1") {
		t.Error("same underlying string should compare equal")
	}
	if UserIDOf("u1") == UserIDOf("u2") {
		t.Error("different underlying strings should not compare equal")
	}
}

func TestIsAll(t *testing.T) {
	if !RepoIDOf("").IsAll() {
		t.Error("sentinel should report IsAll")
	}
	if RepoIDOf("wiki").IsAll() {
		t.Error("concrete id should not report IsAll")
	}
}
