/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements issueforge, a one-shot agent that takes a GitHub
// issue from goal to pull request: it snapshots the repository, asks Claude
// for edits, runs the tests after each one, and publishes a PR once they
// pass.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chainguard.dev/issueforge/claude"
	"chainguard.dev/issueforge/orchestrator"
	"chainguard.dev/issueforge/publisher"
	"chainguard.dev/issueforge/snapshot"
	"chainguard.dev/issueforge/testrunner"
	"chainguard.dev/issueforge/workspace"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"
)

type config struct {
	GitHubToken     string `env:"GITHUB_TOKEN,required"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY,required"`

	// Repo is the owner/name of the repository to work on.
	Repo        string `env:"REPO,required"`
	IssueNumber int    `env:"ISSUE_NUMBER,required"`
	BaseRef     string `env:"BASE_REF,default=main"`
	Identity    string `env:"IDENTITY,default=issueforge"`

	Model       string `env:"MODEL,default=claude-sonnet-4-5"`
	MaxAttempts int    `env:"MAX_ATTEMPTS,default=10"`

	// TestCommand is the argv run after every edit, split on whitespace.
	TestCommand string        `env:"TEST_COMMAND,required"`
	TestTimeout time.Duration `env:"TEST_TIMEOUT,default=5m"`

	// MaxFileSize skips larger files when snapshotting. Zero keeps everything.
	MaxFileSize int64 `env:"MAX_FILE_SIZE,default=1048576"`

	// MetricsPort exposes Prometheus metrics when positive.
	MetricsPort int `env:"METRICS_PORT,default=0"`
}

func main() {
	// The exit code is decided after run's defers (workspace cleanup) have
	// completed.
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := clog.FromContext(ctx)

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.With("error", err).Error("Failed to process config")
		return 1
	}

	owner, repo, ok := strings.Cut(cfg.Repo, "/")
	if !ok || owner == "" || repo == "" {
		log.With("repo", cfg.Repo).Error("REPO must be owner/name")
		return 1
	}

	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			log.With("addr", addr).Info("Serving metrics")
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.With("error", err).Warn("Metrics server exited")
			}
		}()
	}

	gh := github.NewClient(nil).WithAuthToken(cfg.GitHubToken)
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})

	issue, _, err := gh.Issues.Get(ctx, owner, repo, cfg.IssueNumber)
	if err != nil {
		log.With("issue", cfg.IssueNumber).With("error", err).Error("Failed to fetch issue")
		return 1
	}
	goal := issue.GetTitle()
	if body := issue.GetBody(); body != "" {
		goal += "\n\n" + body
	}
	log.With("issue", cfg.IssueNumber).With("title", issue.GetTitle()).
		Info("Working issue")

	loader, err := snapshot.NewGitLoader(tokenSource, owner, repo, cfg.BaseRef,
		snapshot.WithMaxFileSize(cfg.MaxFileSize))
	if err != nil {
		log.With("error", err).Error("Failed to create snapshot loader")
		return 1
	}
	base, err := loader.Load(ctx)
	if err != nil {
		log.With("error", err).Error("Failed to load snapshot")
		return 1
	}

	manager, err := workspace.NewManager(cfg.Identity)
	if err != nil {
		log.With("error", err).Error("Failed to create workspace manager")
		return 1
	}
	defer manager.Close()

	runner, err := testrunner.NewCommandRunner(strings.Fields(cfg.TestCommand),
		testrunner.WithTimeout(cfg.TestTimeout))
	if err != nil {
		log.With("error", err).Error("Failed to create test runner")
		return 1
	}

	pub, err := publisher.NewGitHub(gh, owner, repo, cfg.Identity,
		publisher.WithBaseRef(cfg.BaseRef))
	if err != nil {
		log.With("error", err).Error("Failed to create publisher")
		return 1
	}

	requester, err := claude.New(
		anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		claude.WithModel(cfg.Model))
	if err != nil {
		log.With("error", err).Error("Failed to create Claude client")
		return 1
	}

	session, err := orchestrator.NewSession(requester, manager, runner, pub, goal, base,
		orchestrator.WithMaxAttempts(cfg.MaxAttempts))
	if err != nil {
		log.With("error", err).Error("Failed to create session")
		return 1
	}

	outcome, err := session.Run(ctx)
	if err != nil {
		log.With("error", err).Error("Session interrupted")
		return 1
	}

	printReport(os.Stdout, outcome)

	if outcome.State != orchestrator.StateSucceeded {
		if outcome.LastTest != nil && !outcome.LastTest.Success {
			fmt.Fprintf(os.Stderr, "\nLast test output:\n%s\n", outcome.LastTest.Output)
		}
		return 1
	}
	return 0
}
