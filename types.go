// Package semtag parses git describe output into semantic version components.
package semtag

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ParsedVersion contains the components of a parsed tag.
// Numeric fields are kept as decimal strings.
type ParsedVersion struct {
	Major      string `json:"major"`
	Minor      string `json:"minor"`
	Patch      string `json:"patch"`
	PreRelease string `json:"prerelease"`
}

// ErrorEvent is a single failure notification delivered to an ErrorSink
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
}

// DescribeOptions configures how the nearest tag is located
type DescribeOptions struct {
	// Repository is the Git repository to analyze
	Repository *git.Repository

	// Commitish specifies which commit to describe (default: "HEAD")
	Commitish plumbing.Revision

	// TagFilter allows filtering which tags to consider
	TagFilter func(string) bool

	// TagPattern is a regex pattern to filter tags (alternative to TagFilter)
	TagPattern string

	// Abbrev is the number of hash characters to render (default: 7)
	Abbrev int
}

// DescribeResult is the nearest tag and the distance to it
type DescribeResult struct {
	Tag     string `json:"tag"`
	Commits int    `json:"commits"`
	Hash    string `json:"hash"`
	Dirty   bool   `json:"dirty"`
}
