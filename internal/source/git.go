package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/memory"
)

var _ Source = (*Git)(nil)

// Git reads SQL definitions from a git repository at a fixed revision.
// Remote URLs are cloned into memory; local paths are opened in place. The
// file set is pinned to the resolved commit, so repeated Reads are stable
// even if the repository moves on.
type Git struct {
	tree    *object.Tree
	dir     string
	modTime time.Time
}

// GitConfig selects the repository and the subtree holding SQL definitions.
type GitConfig struct {
	// URL is a remote to clone. Mutually exclusive with Path.
	URL string
	// Path is a local repository to open.
	Path string
	// Rev is any revision understood by git (branch, tag, hash). Empty
	// means HEAD.
	Rev string
	// Dir restricts discovery to a subtree, e.g. "sp" or "apps/billing/sp".
	Dir string
}

// NewGit opens or clones the configured repository and pins the source to
// the resolved commit tree.
func NewGit(cfg GitConfig) (*Git, error) {
	var (
		repo *git.Repository
		err  error
	)
	switch {
	case cfg.URL != "" && cfg.Path != "":
		return nil, fmt.Errorf("source: git url and path are mutually exclusive")
	case cfg.URL != "":
		repo, err = git.Clone(memory.NewStorage(), memfs.New(), &git.CloneOptions{URL: cfg.URL})
		if err != nil {
			return nil, fmt.Errorf("source: clone %s: %w", cfg.URL, err)
		}
	case cfg.Path != "":
		repo, err = git.PlainOpen(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("source: open repository %s: %w", cfg.Path, err)
		}
	default:
		return nil, fmt.Errorf("source: git source needs a url or a path")
	}

	var hash plumbing.Hash
	if cfg.Rev == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("source: resolve HEAD: %w", err)
		}
		hash = head.Hash()
	} else {
		resolved, err := repo.ResolveRevision(plumbing.Revision(cfg.Rev))
		if err != nil {
			return nil, fmt.Errorf("source: resolve revision %s: %w", cfg.Rev, err)
		}
		hash = *resolved
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("source: commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("source: tree of %s: %w", hash, err)
	}
	return &Git{
		tree:    tree,
		dir:     strings.Trim(cfg.Dir, "/"),
		modTime: commit.Committer.When,
	}, nil
}

// OpenGitFromEnv constructs a git source from process environment.
//
//	PROCSTORE_SOURCE_GIT_URL or PROCSTORE_SOURCE_GIT_PATH
//	PROCSTORE_SOURCE_GIT_REV (optional, default HEAD)
//	PROCSTORE_SOURCE_GIT_DIR (optional subtree)
func OpenGitFromEnv() (*Git, error) {
	return NewGit(GitConfig{
		URL:  os.Getenv("PROCSTORE_SOURCE_GIT_URL"),
		Path: os.Getenv("PROCSTORE_SOURCE_GIT_PATH"),
		Rev:  os.Getenv("PROCSTORE_SOURCE_GIT_REV"),
		Dir:  os.Getenv("PROCSTORE_SOURCE_GIT_DIR"),
	})
}

func (g *Git) Driver() Driver { return DriverGit }

func (g *Git) inDir(name string) (string, bool) {
	if g.dir == "" {
		return name, true
	}
	rest, ok := strings.CutPrefix(name, g.dir+"/")
	return rest, ok
}

// List returns every .sql file under the configured subtree at the pinned
// commit.
func (g *Git) List(_ context.Context) ([]File, error) {
	var files []File
	err := g.tree.Files().ForEach(func(f *object.File) error {
		key, ok := g.inDir(f.Name)
		if !ok || !isSQL(key) {
			return nil
		}
		files = append(files, File{Key: key, Size: f.Blob.Size, ModTime: g.modTime})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk git tree: %w", err)
	}
	return files, nil
}

// Read returns the contents of the file registered under key.
func (g *Git) Read(_ context.Context, key string) ([]byte, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	name := clean
	if g.dir != "" {
		name = g.dir + "/" + clean
	}
	f, err := g.tree.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	if err != nil {
		return nil, fmt.Errorf("source: git file %s: %w", key, err)
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("source: git file %s: %w", key, err)
	}
	return []byte(contents), nil
}
