// Package gitsource materializes a remote git repository into a temp
// directory so the scanner can treat it like any local tree.
package gitsource

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// Checkout is a cloned working tree. Cleanup removes it; always call it, even
// after a failed scan.
type Checkout struct {
	URL    string
	Dir    string
	logger *zap.Logger
}

// Clone performs a depth-1 clone of url into a fresh temp directory. The
// caller owns the returned checkout.
func Clone(ctx context.Context, url string, logger *zap.Logger) (*Checkout, error) {
	dir, err := os.MkdirTemp("", "lancet-clone-*")
	if err != nil {
		return nil, fmt.Errorf("creating clone directory: %w", err)
	}

	logger.Info("Cloning repository", zap.String("url", url), zap.String("dir", dir))
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning %s: %w", url, err)
	}

	return &Checkout{URL: url, Dir: dir, logger: logger}, nil
}

// Cleanup removes the working tree. Safe to call more than once.
func (c *Checkout) Cleanup() {
	if c.Dir == "" {
		return
	}
	if err := os.RemoveAll(c.Dir); err != nil {
		c.logger.Warn("Failed to remove clone directory", zap.String("dir", c.Dir), zap.Error(err))
		return
	}
	c.Dir = ""
}
