package snap

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/frame"
)

var ErrNoSnapshots = errors.New("archive has no snapshots")

// Snapshot describes one archived state of the database.
type Snapshot struct {
	Hash    string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Snapshot{Hash: %s, When: %s, Author: %s}", s.Hash, s.When, s.Author)
}

// Archive is a git repository holding one CSV file per table. Take
// commits the current state of a connection, Restore loads a previous
// commit back.
type Archive struct {
	repo *git.Repository
	mu   sync.Mutex
}

// NewMemoryArchive creates an archive backed by an in-memory
// repository. History is lost when the process exits.
func NewMemoryArchive() (*Archive, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Archive{repo: repo}, nil
}

// NewFileArchive creates or opens an archive rooted at baseDir. An
// existing repository in baseDir is reopened with its history intact.
func NewFileArchive(baseDir string) (*Archive, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	return &Archive{repo: repo}, nil
}

// Take exports every table of the connection as CSV and commits the
// result with the identity as author. Tables dropped since the last
// snapshot disappear from the tree.
func (a *Archive) Take(conn *db.Connection, identity core.Identity, message string) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tables, err := conn.Tables()
	if err != nil {
		return Snapshot{}, err
	}

	wt, err := a.repo.Worktree()
	if err != nil {
		return Snapshot{}, err
	}

	if err := removeStaleExports(wt, tables); err != nil {
		return Snapshot{}, err
	}

	for _, table := range tables {
		rec, err := frame.Query(conn, "SELECT * FROM "+conn.Engine().QuoteIdent(table))
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to export table %s: %w", table, err)
		}

		var buf bytes.Buffer
		err = frame.EncodeCSV(&buf, rec)
		rec.Release()
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to export table %s: %w", table, err)
		}

		if err := util.WriteFile(wt.Filesystem, table+".csv", buf.Bytes(), 0644); err != nil {
			return Snapshot{}, err
		}
	}

	if _, err := wt.Add("."); err != nil {
		return Snapshot{}, err
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return Snapshot{}, err
	}

	commit, err := a.repo.CommitObject(hash)
	if err != nil {
		return Snapshot{}, err
	}

	return newSnapshot(commit), nil
}

// Latest returns the most recent snapshot, or ErrNoSnapshots for an
// empty archive.
func (a *Archive) Latest() (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	headRef, err := a.repo.Head()
	if err != nil {
		return Snapshot{}, ErrNoSnapshots
	}

	commit, err := a.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Snapshot{}, err
	}

	return newSnapshot(commit), nil
}

// History lists all snapshots, newest first.
func (a *Archive) History() ([]Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.repo.Head(); err != nil {
		return nil, nil
	}

	cIter, err := a.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, err
	}

	var snapshots []Snapshot
	err = cIter.ForEach(func(c *object.Commit) error {
		snapshots = append(snapshots, newSnapshot(c))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshots, nil
}

// Restore resets the worktree to the given snapshot and loads every
// archived table back into the connection, replacing existing tables
// with the same name. Empty tables are skipped since their column
// types cannot be recovered from a header-only CSV.
func (a *Archive) Restore(conn *db.Connection, hash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	wt, err := a.repo.Worktree()
	if err != nil {
		return err
	}

	err = wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: plumbing.NewHash(hash),
	})
	if err != nil {
		return fmt.Errorf("failed to reset to snapshot %s: %w", hash, err)
	}

	entries, err := wt.Filesystem.ReadDir(".")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), ".csv")

		f, err := wt.Filesystem.Open(entry.Name())
		if err != nil {
			return err
		}

		rec, err := frame.DecodeCSV(f)
		f.Close()
		if errors.Is(err, frame.ErrEmptyCSV) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load table %s: %w", table, err)
		}

		err = frame.Write(conn, table, rec, frame.Replace)
		rec.Release()
		if err != nil {
			return fmt.Errorf("failed to load table %s: %w", table, err)
		}
	}

	return nil
}

func removeStaleExports(wt *git.Worktree, tables []string) error {
	keep := make(map[string]bool, len(tables))
	for _, table := range tables {
		keep[table+".csv"] = true
	}

	entries, err := wt.Filesystem.ReadDir(".")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") || keep[name] {
			continue
		}
		if _, err := wt.Remove(name); err != nil {
			return err
		}
	}

	return nil
}

func newSnapshot(c *object.Commit) Snapshot {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}

	return Snapshot{
		Hash:    c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(c.Message),
	}
}
