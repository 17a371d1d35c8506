// Package ident defines the opaque identifier types shared across the
// service: repositories, users, groups, and tags. Each type is a plain
// interned string with value equality. Every kind reserves a sentinel
// meaning "all", used to request unscoped queries; constructing an id
// from an empty string yields the sentinel rather than an error.
package ident

// Sentinel values for unscoped queries.
const (
	AllRepos  RepoID  = "ALL_REPOS"
	AllUsers  UserID  = "ALL_USERS"
	AllGroups GroupID = "ALL_GROUPS"
)

type RepoID string

type UserID string

type GroupID string

type TagID string

// RepoIDOf interns a raw string as a RepoID. Empty input means "all".
func RepoIDOf(raw string) RepoID {
	if raw == "" {
		return AllRepos
	}
	return RepoID(raw)
}

// UserIDOf interns a raw string as a UserID. Empty input means "all".
func UserIDOf(raw string) UserID {
	if raw == "" {
		return AllUsers
	}
	return UserID(raw)
}

// GroupIDOf interns a raw string as a GroupID. Empty input means "all".
func GroupIDOf(raw string) GroupID {
	if raw == "" {
		return AllGroups
	}
	return GroupID(raw)
}

// TagIDOf interns a raw string as a TagID. Tags have no "all" sentinel;
// empty stays empty.
func TagIDOf(raw string) TagID { return TagID(raw) }

func (id RepoID) String() string  { return string(id) }
func (id UserID) String() string  { return string(id) }
func (id GroupID) String() string { return string(id) }
func (id TagID) String() string   { return string(id) }

// IsAll reports whether the id is the unscoped sentinel.
func (id RepoID) IsAll() bool { return id == AllRepos }

func (id UserID) IsAll() bool { return id == AllUsers }

func (id GroupID) IsAll() bool { return id == AllGroups }
