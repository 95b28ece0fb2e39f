/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

const defaultBaseRef = "main"

// PublishError reports a failed interaction with the hosting service. The
// session that triggered it should not retry; the partial state on the remote
// is safe to leave in place because a later publish converges.
type PublishError struct {
	// Op names the failed remote operation.
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish: %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Result describes the published pull request.
type Result struct {
	Branch string
	URL    string
	Number int
}

// Publisher publishes a complete file state as a pull request.
type Publisher interface {
	Publish(ctx context.Context, branch, title, description string, files map[string]string) (*Result, error)
}

// GitHub publishes to a single GitHub repository.
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	baseRef string
	// identity is the commit author name, suffixed with @chainguard.dev when
	// it lacks a domain.
	identity string
}

// GitHubOption configures a GitHub publisher.
type GitHubOption func(*GitHub)

// WithBaseRef sets the branch pull requests target. Defaults to main.
func WithBaseRef(ref string) GitHubOption {
	return func(g *GitHub) {
		g.baseRef = ref
	}
}

// NewGitHub constructs a GitHub publisher. Identity is used as the commit
// author name.
func NewGitHub(client *github.Client, owner, repo, identity string, opts ...GitHubOption) (*GitHub, error) {
	switch {
	case client == nil:
		return nil, errors.New("client cannot be nil")
	case strings.TrimSpace(owner) == "":
		return nil, errors.New("owner cannot be empty")
	case strings.TrimSpace(repo) == "":
		return nil, errors.New("repo cannot be empty")
	case strings.TrimSpace(identity) == "":
		return nil, errors.New("identity cannot be empty")
	}

	g := &GitHub{
		client:   client,
		owner:    owner,
		repo:     repo,
		baseRef:  defaultBaseRef,
		identity: identity,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Publish commits files as the complete tree of branch and upserts the pull
// request whose head is that branch. The commit is skipped when the branch
// head already holds an identical tree, and an open PR for the branch is
// updated in place, so Publish is idempotent per branch.
func (g *GitHub) Publish(ctx context.Context, branch, title, description string, files map[string]string) (*Result, error) {
	if strings.TrimSpace(branch) == "" {
		return nil, &PublishError{Op: "validating branch", Err: errors.New("branch cannot be empty")}
	}

	headSHA, err := g.ensureBranch(ctx, branch)
	if err != nil {
		return nil, err
	}

	if err := g.commitTree(ctx, branch, headSHA, title, files); err != nil {
		return nil, err
	}

	return g.upsertPR(ctx, branch, title, description)
}

// ensureBranch returns the head SHA of branch, creating it at the base ref
// tip when it does not exist yet.
func (g *GitHub) ensureBranch(ctx context.Context, branch string) (string, error) {
	log := clog.FromContext(ctx)

	ref, resp, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+branch)
	if err == nil {
		return ref.GetObject().GetSHA(), nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return "", &PublishError{Op: "getting branch ref", Err: err}
	}

	baseRef, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "heads/"+g.baseRef)
	if err != nil {
		return "", &PublishError{Op: "getting base ref", Err: err}
	}
	baseSHA := baseRef.GetObject().GetSHA()

	log.With("branch", branch).With("base_sha", baseSHA).Info("Creating branch")
	created, _, err := g.client.Git.CreateRef(ctx, g.owner, g.repo, github.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: baseSHA,
	})
	if err != nil {
		return "", &PublishError{Op: "creating branch ref", Err: err}
	}
	return created.GetObject().GetSHA(), nil
}

// commitTree writes files as a full tree (no base tree, so omitted paths are
// deletions) and advances branch to a commit holding it, unless the branch
// head already carries an identical tree.
func (g *GitHub) commitTree(ctx context.Context, branch, headSHA, message string, files map[string]string) error {
	log := clog.FromContext(ctx)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]*github.TreeEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, &github.TreeEntry{
			Path:    github.Ptr(p),
			Mode:    github.Ptr("100644"),
			Type:    github.Ptr("blob"),
			Content: github.Ptr(files[p]),
		})
	}

	tree, _, err := g.client.Git.CreateTree(ctx, g.owner, g.repo, "", entries)
	if err != nil {
		return &PublishError{Op: "creating tree", Err: err}
	}

	headCommit, _, err := g.client.Git.GetCommit(ctx, g.owner, g.repo, headSHA)
	if err != nil {
		return &PublishError{Op: "getting head commit", Err: err}
	}
	if headCommit.GetTree().GetSHA() == tree.GetSHA() {
		log.With("branch", branch).Info("Branch head already matches, skipping commit")
		return nil
	}

	email := g.identity
	if !strings.Contains(email, "@") {
		email = fmt.Sprintf("%s@chainguard.dev", email)
	}
	now := time.Now()
	commit, _, err := g.client.Git.CreateCommit(ctx, g.owner, g.repo, github.Commit{
		Message: github.Ptr(message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.Ptr(headSHA)}},
		Author: &github.CommitAuthor{
			Name:  github.Ptr(g.identity),
			Email: github.Ptr(email),
			Date:  &github.Timestamp{Time: now},
		},
	}, nil)
	if err != nil {
		return &PublishError{Op: "creating commit", Err: err}
	}

	if _, _, err := g.client.Git.UpdateRef(ctx, g.owner, g.repo, "heads/"+branch, github.UpdateRef{
		SHA:   commit.GetSHA(),
		Force: github.Ptr(true),
	}); err != nil {
		return &PublishError{Op: "updating branch ref", Err: err}
	}

	log.With("branch", branch).With("commit", commit.GetSHA()).Info("Committed file state")
	return nil
}

// upsertPR updates the open PR for branch, or creates one when none exists.
func (g *GitHub) upsertPR(ctx context.Context, branch, title, description string) (*Result, error) {
	log := clog.FromContext(ctx)

	prs, _, err := g.client.PullRequests.List(ctx, g.owner, g.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", g.owner, branch),
	})
	if err != nil {
		return nil, &PublishError{Op: "listing pull requests", Err: err}
	}

	if len(prs) > 0 {
		pr := prs[0]
		if pr.GetTitle() != title || pr.GetBody() != description {
			pr, _, err = g.client.PullRequests.Edit(ctx, g.owner, g.repo, pr.GetNumber(), &github.PullRequest{
				Title: github.Ptr(title),
				Body:  github.Ptr(description),
			})
			if err != nil {
				return nil, &PublishError{Op: "updating pull request", Err: err}
			}
		}
		log.Infof("Updated PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
		return &Result{Branch: branch, URL: pr.GetHTMLURL(), Number: pr.GetNumber()}, nil
	}

	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(description),
		Head:  github.Ptr(branch),
		Base:  github.Ptr(g.baseRef),
	})
	if err != nil {
		return nil, &PublishError{Op: "creating pull request", Err: err}
	}

	log.Infof("Created PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
	return &Result{Branch: branch, URL: pr.GetHTMLURL(), Number: pr.GetNumber()}, nil
}
