// Package gitsource keeps local checkouts of git-hosted deck sources.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsRemote reports whether source names a git repository rather than a
// local directory.
func IsRemote(source string) bool {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "ssh://") || strings.HasPrefix(source, "git@") {
		return true
	}
	return strings.HasSuffix(source, ".git") && !isDir(source)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// LocalPath returns where repoURL is checked out under baseDir, e.g.
// https://github.com/u/cards.git -> baseDir/github.com/u/cards.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http" && parsedURL.Scheme != "ssh") {
		// scp-like syntax: git@host:user/repo.git
		if at := strings.Index(repoURL, "@"); at >= 0 {
			hostAndPath := repoURL[at+1:]
			host, repoPath, ok := strings.Cut(hostAndPath, ":")
			if ok && host != "" && repoPath != "" {
				return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Hostname(), sanitizedPath), nil
}

// Syncer clones or pulls repositories.
type Syncer struct {
	log      *slog.Logger
	progress io.Writer
}

// NewSyncer creates a Syncer. progress receives git's progress output and may
// be nil.
func NewSyncer(log *slog.Logger, progress io.Writer) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{log: log, progress: progress}
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func (s *Syncer) Sync(ctx context.Context, url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		s.log.Info("cloning repository", "url", url, "path", localPath)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(localPath), err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      url,
			Progress: s.progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		s.log.Info("clone successful", "path", localPath)

	case err == nil:
		s.log.Info("pulling latest changes", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   s.progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		s.log.Info("pull complete", "path", localPath, "up_to_date", errors.Is(err, git.NoErrAlreadyUpToDate))

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}
