// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0.

package semtag

import (
	"fmt"
	"path"
	"regexp"

	"github.com/blang/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	defaultAbbrev = 7
	minAbbrev     = 4
	hashHexSize   = 40
)

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// Describe finds the tag reachable from opts.Commitish with the fewest commits
// between them, like `git describe --tags`.
func Describe(opts DescribeOptions) (*DescribeResult, error) {
	if opts.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	if opts.Commitish == "" {
		opts.Commitish = "HEAD"
	}

	// Apply tag pattern filter if specified
	if opts.TagPattern != "" && opts.TagFilter == nil {
		re, err := regexp.Compile(opts.TagPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tag pattern: %w", err)
		}
		opts.TagFilter = re.MatchString
	}

	revision, err := opts.Repository.ResolveRevision(opts.Commitish)
	if err != nil {
		return nil, fmt.Errorf("resolving commitish: %w", err)
	}

	commit, err := opts.Repository.CommitObject(*revision)
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}

	tags, err := tagIndex(opts.Repository, opts.TagFilter)
	if err != nil {
		return nil, fmt.Errorf("indexing tags: %w", err)
	}

	tagRef, commits, err := nearestTag(commit, tags)
	if err != nil {
		return nil, fmt.Errorf("finding nearest tag: %w", err)
	}
	if tagRef == nil {
		return nil, fmt.Errorf("describing %s: %w", opts.Commitish, ErrNoTag)
	}

	isDirty, err := workTreeIsDirty(opts.Repository)
	if err != nil {
		return nil, fmt.Errorf("checking if worktree is dirty: %w", err)
	}

	return &DescribeResult{
		Tag:     tagRef.Name().Short(),
		Commits: commits,
		Hash:    revision.String()[:abbrevLength(opts.Abbrev)],
		Dirty:   isDirty,
	}, nil
}

// ParseDescribe describes the repository and parses the result. Module path
// prefixes such as "sdk/" are dropped from the tag before parsing.
func ParseDescribe(opts DescribeOptions) (*ParsedVersion, *DescribeResult, error) {
	described, err := Describe(opts)
	if err != nil {
		return nil, nil, err
	}

	version, err := Parse(described.Version())
	if err != nil {
		return nil, described, err
	}

	return version, described, nil
}

// String renders the result the way git describe does: the bare tag when the
// commit is tagged, TAG-N-gHASH otherwise.
func (d *DescribeResult) String() string {
	if d.Commits == 0 {
		return d.Tag
	}
	return fmt.Sprintf("%s-%d-g%s", d.Tag, d.Commits, d.Hash)
}

// Version is String with module path prefixes removed, ready for Parse
func (d *DescribeResult) Version() string {
	return stripModuleTagPrefixes(d.String())
}

func stripModuleTagPrefixes(tag string) string {
	_, versionComponent := path.Split(tag)
	return versionComponent
}

func abbrevLength(abbrev int) int {
	switch {
	case abbrev == 0:
		return defaultAbbrev
	case abbrev < minAbbrev:
		return minAbbrev
	case abbrev > hashHexSize:
		return hashHexSize
	default:
		return abbrev
	}
}

// taggedCommit is the tag chosen to describe one commit
type taggedCommit struct {
	ref       *plumbing.Reference
	annotated bool
}

// tagIndex maps each tagged commit to the tag that should describe it.
// Annotated tags win over lightweight ones, then the highest version wins.
func tagIndex(repo *git.Repository, tagFilter func(string) bool) (map[plumbing.Hash]taggedCommit, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	index := make(map[plumbing.Hash]taggedCommit)

	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		// Apply tag filter
		if tagFilter != nil && !tagFilter(ref.Name().Short()) {
			return nil
		}

		candidate := taggedCommit{ref: ref}
		target := ref.Hash()

		obj, err := repo.TagObject(ref.Hash())
		switch err {
		case nil:
			// Annotated tag
			if obj.TargetType != plumbing.CommitObject {
				return nil
			}
			target = obj.Target
			candidate.annotated = true
		case plumbing.ErrObjectNotFound:
			// Lightweight tag
		default:
			return err
		}

		current, ok := index[target]
		if !ok || preferTag(candidate, current) {
			index[target] = candidate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return index, nil
}

func preferTag(candidate, current taggedCommit) bool {
	if candidate.annotated != current.annotated {
		return candidate.annotated
	}

	candidateName, currentName := candidate.ref.Name().Short(), current.ref.Name().Short()
	candidateVersion, err1 := semver.ParseTolerant(stripModuleTagPrefixes(candidateName))
	currentVersion, err2 := semver.ParseTolerant(stripModuleTagPrefixes(currentName))
	if err1 == nil && err2 == nil && !candidateVersion.EQ(currentVersion) {
		return candidateVersion.GT(currentVersion)
	}

	return candidateName > currentName
}

// nearestTag returns the reachable tag with the fewest commits between it and
// commit, as git describe does. Equal distances fall back to preferTag.
func nearestTag(commit *object.Commit,
	tags map[plumbing.Hash]taggedCommit) (*plumbing.Reference, int, error) {

	var candidates []*object.Commit

	walker := object.NewCommitPreorderIter(commit, nil, nil)
	err := walker.ForEach(func(c *object.Commit) error {
		if _, ok := tags[c.Hash]; ok {
			candidates = append(candidates, c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	var (
		best     taggedCommit
		found    bool
		distance int
	)

	for _, c := range candidates {
		candidate := tags[c.Hash]
		count, err := commitsSince(commit, c)
		if err != nil {
			return nil, 0, fmt.Errorf("counting commits since %s: %w", candidate.ref.Name().Short(), err)
		}

		if !found || count < distance || (count == distance && preferTag(candidate, best)) {
			best, distance, found = candidate, count, true
		}
	}

	if !found {
		return nil, 0, nil
	}
	return best.ref, distance, nil
}

// commitsSince counts commits reachable from head that are not reachable from base
func commitsSince(head, base *object.Commit) (int, error) {
	seen := make(map[plumbing.Hash]bool)
	err := object.NewCommitPreorderIter(base, nil, nil).ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := 0
	err = object.NewCommitPreorderIter(head, seen, nil).ForEach(func(*object.Commit) error {
		count++
		return nil
	})

	return count, err
}

func workTreeIsDirty(repo *git.Repository) (bool, error) {
	workTree, err := repo.Worktree()
	if err == git.ErrIsBareRepository {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}

	return !status.IsClean(), nil
}
