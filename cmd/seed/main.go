// Command seed provisions users, groups, memberships, and grants
// directly in the database. Intended for local development and test
// fixtures, not production use.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/DocumentationTool/Backend-sub000/internal/config"
	"github.com/DocumentationTool/Backend-sub000/internal/db"
	identitydomain "github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	identityrepo "github.com/DocumentationTool/Backend-sub000/internal/identity/repository"
	identityservice "github.com/DocumentationTool/Backend-sub000/internal/identity/service"
	"github.com/DocumentationTool/Backend-sub000/internal/logger"
	permdomain "github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	permrepo "github.com/DocumentationTool/Backend-sub000/internal/permissions/repository"
	permservice "github.com/DocumentationTool/Backend-sub000/internal/permissions/service"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	sqldb, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		fatalf("open database: %v", err)
	}
	defer sqldb.Close()

	log := logger.Nop()
	identity := identityservice.New(identityrepo.New(sqldb), log)
	perms := permservice.New(permrepo.New(sqldb), identity, nil, log)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "user":
		fs := flag.NewFlagSet("user", flag.ExitOnError)
		id := fs.String("id", "", "user id")
		name := fs.String("name", "", "display name")
		rolesCSV := fs.String("roles", "", "comma-separated roles")
		_ = fs.Parse(os.Args[2:])
		if *id == "" {
			fatalf("-id is required")
		}
		if *name == "" {
			*name = *id
		}
		_, err := identity.CreateUser(ctx, ident.UserIDOf(*id), *name, splitCSV(*rolesCSV))
		if errors.Is(err, identitydomain.ErrUserExists) {
			stderr("user %s already exists", *id)
		} else if err != nil {
			fatalf("create user: %v", err)
		}
		fmt.Printf("USER_ID=%s\n", *id)
	case "group":
		fs := flag.NewFlagSet("group", flag.ExitOnError)
		id := fs.String("id", "", "group id")
		name := fs.String("name", "", "group name")
		_ = fs.Parse(os.Args[2:])
		if *id == "" {
			fatalf("-id is required")
		}
		if *name == "" {
			*name = *id
		}
		_, err := identity.CreateGroup(ctx, ident.GroupIDOf(*id), *name)
		if errors.Is(err, identitydomain.ErrGroupExists) {
			stderr("group %s already exists", *id)
		} else if err != nil {
			fatalf("create group: %v", err)
		}
		fmt.Printf("GROUP_ID=%s\n", *id)
	case "member":
		fs := flag.NewFlagSet("member", flag.ExitOnError)
		group := fs.String("group", "", "group id")
		user := fs.String("user", "", "user id")
		_ = fs.Parse(os.Args[2:])
		if *group == "" || *user == "" {
			fatalf("-group and -user are required")
		}
		if err := identity.AddGroupMember(ctx, ident.GroupIDOf(*group), ident.UserIDOf(*user)); err != nil {
			fatalf("add member: %v", err)
		}
	case "grant":
		fs := flag.NewFlagSet("grant", flag.ExitOnError)
		repo := fs.String("repo", "", "repository id")
		user := fs.String("user", "", "user id (mutually exclusive with -group)")
		group := fs.String("group", "", "group id")
		path := fs.String("path", "", "exact path or glob pattern")
		level := fs.String("level", "VIEW", "DENY | VIEW | EDIT | ADMIN")
		_ = fs.Parse(os.Args[2:])
		if *repo == "" {
			fatalf("-repo is required")
		}
		lvl := permdomain.PermissionLevel(strings.ToUpper(*level))
		if !lvl.Valid() {
			fatalf("unknown level %q", *level)
		}
		switch {
		case *user != "" && *group == "":
			if err := perms.AddUserGrant(ctx, ident.RepoIDOf(*repo), ident.UserIDOf(*user), *path, lvl); err != nil {
				fatalf("add user grant: %v", err)
			}
		case *group != "" && *user == "":
			if err := perms.AddGroupGrant(ctx, ident.RepoIDOf(*repo), ident.GroupIDOf(*group), *path, lvl); err != nil {
				fatalf("add group grant: %v", err)
			}
		default:
			fatalf("exactly one of -user or -group is required")
		}
	default:
		usage()
		os.Exit(2)
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func usage() {
	stderr("usage: seed <user|group|member|grant> [flags]")
}

func stderr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func fatalf(format string, args ...any) {
	stderr(format, args...)
	os.Exit(1)
}
