// Package gitfiles resolves which rule files changed for incremental
// conversion runs, either from explicit lists (CI passes them in) or by
// diffing the repository head against a base ref.
package gitfiles

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
)

// Selection is the set of files driving an incremental run. Paths are
// absolute and sorted. Deleted files cannot be converted; they matter
// because the output directory reset already drops their stale records.
type Selection struct {
	Changed []string
	Deleted []string
}

// FromLists builds a selection from explicit file lists, resolving
// relative entries against root. Lists may be comma or whitespace
// separated, matching how CI systems pass file sets through a single
// environment variable.
func FromLists(root string, changed, deleted []string) Selection {
	return Selection{
		Changed: resolveList(root, changed),
		Deleted: resolveList(root, deleted),
	}
}

// FromDiff diffs the repository at root from baseRef to HEAD and
// returns the touched files. An unresolvable ref or a root that is not
// a repository is a configuration error.
func FromDiff(root, baseRef string, log *zap.SugaredLogger) (Selection, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return Selection{}, errors.WrapConfiguration(err, "opening git repository at project root")
	}

	head, err := repo.Head()
	if err != nil {
		return Selection{}, errors.WrapConfiguration(err, "resolving repository HEAD")
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Selection{}, errors.Wrap(err, "loading HEAD commit")
	}

	baseHash, err := repo.ResolveRevision(plumbing.Revision(baseRef))
	if err != nil {
		return Selection{}, errors.Mark(errors.Wrapf(err, "resolving base ref %q", baseRef), errors.ErrConfiguration)
	}
	baseCommit, err := repo.CommitObject(*baseHash)
	if err != nil {
		return Selection{}, errors.Wrapf(err, "loading base commit %s", baseHash)
	}

	patch, err := baseCommit.Patch(headCommit)
	if err != nil {
		return Selection{}, errors.Wrap(err, "diffing base against HEAD")
	}

	var sel Selection
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		switch {
		case to != nil:
			sel.Changed = append(sel.Changed, filepath.Join(root, filepath.FromSlash(to.Path())))
		case from != nil:
			sel.Deleted = append(sel.Deleted, filepath.Join(root, filepath.FromSlash(from.Path())))
		}
	}
	sort.Strings(sel.Changed)
	sort.Strings(sel.Deleted)

	log.Infow("resolved changed files from git diff",
		"base_ref", baseRef,
		logger.FieldCount, len(sel.Changed),
		"deleted", len(sel.Deleted))
	return sel, nil
}

// SplitList breaks a single flag or environment value into entries on
// commas and whitespace.
func SplitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func resolveList(root string, entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	resolved := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(root, entry)
		}
		resolved = append(resolved, filepath.Clean(entry))
	}
	sort.Strings(resolved)
	return resolved
}
