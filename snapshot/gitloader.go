/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"golang.org/x/oauth2"
)

// repoURL resolves the remote git URL for an owner/repo pair. Tests can
// override this to point at local filesystem repositories.
var repoURL = defaultRemoteURL

// GitLoader loads snapshots of a single repository ref via in-memory clones.
type GitLoader struct {
	tokenSource oauth2.TokenSource
	owner       string
	repo        string
	ref         string

	maxFileSize int64
}

// GitLoaderOption configures a GitLoader.
type GitLoaderOption func(*GitLoader)

// WithMaxFileSize skips files larger than n bytes when loading. Zero means
// no limit.
func WithMaxFileSize(n int64) GitLoaderOption {
	return func(l *GitLoader) {
		l.maxFileSize = n
	}
}

// NewGitLoader constructs a GitLoader. The token source must allow cloning
// the targeted repository.
func NewGitLoader(tokenSource oauth2.TokenSource, owner, repo, ref string, opts ...GitLoaderOption) (*GitLoader, error) {
	switch {
	case tokenSource == nil:
		return nil, errors.New("token source cannot be nil")
	case strings.TrimSpace(owner) == "":
		return nil, errors.New("owner cannot be empty")
	case strings.TrimSpace(repo) == "":
		return nil, errors.New("repo cannot be empty")
	case strings.TrimSpace(ref) == "":
		return nil, errors.New("ref cannot be empty")
	}

	l := &GitLoader{
		tokenSource: tokenSource,
		owner:       owner,
		repo:        repo,
		ref:         ref,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load clones the configured ref into memory and returns the file state at
// its head commit.
func (l *GitLoader) Load(ctx context.Context) (Snapshot, error) {
	log := clog.FromContext(ctx)

	token, err := l.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	remote := repoURL(l.owner, l.repo)
	log.Infof("Cloning %s at %s into memory", remote, l.ref)

	repo, err := git.CloneContext(ctx, memory.NewStorage(), memfs.New(), &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(l.ref),
		SingleBranch:  true,
		Auth: &githttp.BasicAuth{
			Username: "unused-when-using-access-tokens",
			Password: token.AccessToken,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cloning repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving head: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	snap := Snapshot{}
	skipped := 0
	iter := tree.Files()
	defer iter.Close()
	for {
		file, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walking tree: %w", err)
		}
		if l.maxFileSize > 0 && file.Size > l.maxFileSize {
			log.With("path", file.Name).With("size", file.Size).
				Debug("Skipping oversized file")
			skipped++
			continue
		}
		content, err := file.Contents()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name, err)
		}
		snap[file.Name] = content
	}

	log.With("commit", head.Hash().String()).
		With("files", len(snap)).
		With("skipped", skipped).
		Info("Loaded snapshot")
	return snap, nil
}

func defaultRemoteURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, repo)
}
