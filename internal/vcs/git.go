// Package vcs provides typed access to the git CLI for the managed
// working trees. All commands target a specific repository directory
// via the -C flag, injected by every Repo method; stderr is captured
// and folded into errors so a failed git call is diagnosable from the
// log line alone.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/metrics"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
)

// FileState is the working-tree status of one file.
type FileState int

const (
	StateTracked FileState = iota
	StateUntracked
	StateModified
	StateStaged
)

// CommitInfo is the most recent history record for a file.
type CommitInfo struct {
	Author string
	When   time.Time
}

// Repo targets a git working tree at a specific directory. There is no
// default directory; callers always say which repository they mean.
type Repo struct {
	dir        string
	mainBranch string
}

func NewRepo(dir, mainBranch string) *Repo {
	if mainBranch == "" {
		mainBranch = "main"
	}
	return &Repo{dir: dir, mainBranch: mainBranch}
}

// Dir returns the working-tree directory.
func (r *Repo) Dir() string { return r.dir }

// MainBranch returns the branch reconciliation and edits settle on.
func (r *Repo) MainBranch() string { return r.mainBranch }

// Run executes a git command targeting this repository and returns
// stdout.
func (r *Repo) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		metrics.IncVCSFailure(gitOp(args))
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func gitOp(args []string) string {
	if len(args) == 0 {
		return "unknown"
	}
	return args[0]
}

// ListFiles walks the working tree and returns every file with the
// managed extension, as normalized repo-relative paths. The .git
// directory is skipped.
func (r *Repo) ListFiles(ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if ext != "" && !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			return err
		}
		out = append(out, pathtarget.Normalize(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.dir, err)
	}
	return out, nil
}

// Status returns the working-tree status of changed and untracked
// files, keyed by normalized path. Files absent from the map are
// tracked and clean.
func (r *Repo) Status(ctx context.Context) (map[string]FileState, error) {
	out, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	states := make(map[string]FileState)
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		// Renames report "old -> new"; the new path is the live one.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		path = pathtarget.Normalize(strings.Trim(path, `"`))
		switch {
		case code == "??":
			states[path] = StateUntracked
		case code[0] != ' ' && code[0] != '?':
			states[path] = StateStaged
		default:
			states[path] = StateModified
		}
	}
	return states, nil
}

// LastCommit returns the most recent history record for a file. The
// second return is false when the file has no history yet.
func (r *Repo) LastCommit(ctx context.Context, path string) (CommitInfo, bool, error) {
	out, err := r.Run(ctx, "log", "-1", "--format=%an\x1f%at", "--", path)
	if err != nil {
		return CommitInfo{}, false, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return CommitInfo{}, false, nil
	}
	parts := strings.SplitN(out, "\x1f", 2)
	if len(parts) != 2 {
		return CommitInfo{}, false, fmt.Errorf("unexpected git log output %q for %s", out, path)
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return CommitInfo{}, false, fmt.Errorf("parse commit timestamp %q for %s: %w", parts[1], path, err)
	}
	return CommitInfo{Author: parts[0], When: time.Unix(unix, 0).UTC()}, true, nil
}

// ReadFile reads a file from the working tree by repo-relative path.
func (r *Repo) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(path)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes a file into the working tree, creating parent
// directories as needed.
func (r *Repo) WriteFile(path, content string) error {
	abs := filepath.Join(r.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// Add stages a path, including deletions under it.
func (r *Repo) Add(ctx context.Context, path string) error {
	_, err := r.Run(ctx, "add", "-A", "--", path)
	return err
}

// Remove deletes a path from the working tree and the git index.
func (r *Repo) Remove(ctx context.Context, path string) error {
	_, err := r.Run(ctx, "rm", "-f", "--ignore-unmatch", "--", path)
	return err
}

// Commit records staged changes with the given author. The committer
// identity is pinned so commits work without global git config.
func (r *Repo) Commit(ctx context.Context, message, authorName, authorEmail string) error {
	return r.commit(ctx, message, authorName, authorEmail, false)
}

// CommitAllowEmpty records a commit even when the tree is clean. Used
// for reconciliation summaries: the index can change without the
// working tree changing.
func (r *Repo) CommitAllowEmpty(ctx context.Context, message, authorName, authorEmail string) error {
	return r.commit(ctx, message, authorName, authorEmail, true)
}

func (r *Repo) commit(ctx context.Context, message, authorName, authorEmail string, allowEmpty bool) error {
	fullArgs := []string{"-C", r.dir, "commit", "-m", message,
		"--author", fmt.Sprintf("%s <%s>", authorName, authorEmail)}
	if allowEmpty {
		fullArgs = append(fullArgs, "--allow-empty")
	}
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+authorName,
		"GIT_COMMITTER_EMAIL="+authorEmail,
	)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		metrics.IncVCSFailure("commit")
		return fmt.Errorf("git commit in %s: %w (stderr: %s)",
			r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// SetRemote points origin at the given URL, adding the remote if the
// working tree has none yet.
func (r *Repo) SetRemote(ctx context.Context, url string) error {
	if r.HasRemote(ctx) {
		_, err := r.Run(ctx, "remote", "set-url", "origin", url)
		return err
	}
	_, err := r.Run(ctx, "remote", "add", "origin", url)
	return err
}

// HasRemote reports whether any remote is configured.
func (r *Repo) HasRemote(ctx context.Context) bool {
	out, err := r.Run(ctx, "remote")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) != ""
}

// Pull fetches and merges from the default remote.
func (r *Repo) Pull(ctx context.Context) error {
	_, err := r.Run(ctx, "pull", "--ff-only")
	return err
}

// Push publishes the main branch to the default remote.
func (r *Repo) Push(ctx context.Context) error {
	_, err := r.Run(ctx, "push", "origin", r.mainBranch)
	return err
}

// CreateBranch creates and checks out a new branch at HEAD.
func (r *Repo) CreateBranch(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "checkout", "-b", name)
	return err
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "checkout", name)
	return err
}

// Merge fast-forwards the current branch to the named one.
func (r *Repo) Merge(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "merge", "--ff-only", name)
	return err
}

// DeleteBranch removes a branch.
func (r *Repo) DeleteBranch(ctx context.Context, name string) error {
	_, err := r.Run(ctx, "branch", "-D", name)
	return err
}
