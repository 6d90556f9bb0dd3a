package semtag

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTag indicates a tag does not follow MAJOR.MINOR.PATCH[-PRERELEASE][-N-gHASH].
	ErrMalformedTag = errors.New("malformed tag")

	// ErrNoTag indicates no tag is reachable from the described commit.
	ErrNoTag = errors.New("no tag found")
)

// CodeMalformedTag is the ErrorEvent code for ErrMalformedTag.
const CodeMalformedTag = "MALFORMED_TAG"

// MalformedTagError carries the raw tag that failed to parse.
type MalformedTagError struct {
	Tag string
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("Tag '%s' does not follow the semantic version format.", e.Tag)
}

// Is reports whether target is ErrMalformedTag.
func (e *MalformedTagError) Is(target error) bool {
	return target == ErrMalformedTag
}
