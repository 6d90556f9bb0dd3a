package semtag

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/blang/semver"
)

var (
	// tagRe splits a tag into its numeric core and whatever follows the patch number
	tagRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(.*)$`)

	// describeSuffixRe matches the trailing -N-gHASH that git describe appends
	describeSuffixRe = regexp.MustCompile(`^(.*)-(\d+)-g([0-9a-fA-F]+)$`)

	preReleaseRe = regexp.MustCompile(`^-[0-9A-Za-z][0-9A-Za-z.-]*$`)

	// bareSuffixRe is a prerelease that is itself a describe suffix
	bareSuffixRe = regexp.MustCompile(`^-\d+-g[0-9a-fA-F]+$`)
)

// Field names accepted by ParsedVersion.Field
const (
	FieldVersion    = "version"
	FieldMajor      = "major"
	FieldMinor      = "minor"
	FieldPatch      = "patch"
	FieldPreRelease = "prerelease"
)

// Parse decomposes a tag such as "v1.0.2-pre-6-g778787d" into its components.
// The commit count of a describe suffix is added to the patch number; all other
// numeric fields are returned exactly as they appear in the tag.
func Parse(tag string) (*ParsedVersion, error) {
	matches := tagRe.FindStringSubmatch(stripVersionPrefix(tag))
	if matches == nil {
		return nil, &MalformedTagError{Tag: tag}
	}

	major, minor, patch := matches[1], matches[2], matches[3]
	preRelease := matches[4]

	if suffix := describeSuffixRe.FindStringSubmatch(preRelease); suffix != nil {
		patch = addCommits(patch, suffix[2])
		preRelease = suffix[1]
	}

	if preRelease != "" && (!preReleaseRe.MatchString(preRelease) || bareSuffixRe.MatchString(preRelease)) {
		return nil, &MalformedTagError{Tag: tag}
	}

	return &ParsedVersion{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		PreRelease: preRelease,
	}, nil
}

// String renders MAJOR.MINOR.PATCH followed by the prerelease, if any
func (v *ParsedVersion) String() string {
	return fmt.Sprintf("%s.%s.%s%s", v.Major, v.Minor, v.Patch, v.PreRelease)
}

// Semver converts the parsed components into a strict semantic version.
func (v *ParsedVersion) Semver() (semver.Version, error) {
	version, err := semver.Parse(v.String())
	if err != nil {
		return semver.Version{}, fmt.Errorf("parsing %q as semver: %w", v.String(), err)
	}
	return version, nil
}

// Field returns a single component by name
func (v *ParsedVersion) Field(name string) (string, error) {
	switch strings.ToLower(name) {
	case FieldVersion, "":
		return v.String(), nil
	case FieldMajor:
		return v.Major, nil
	case FieldMinor:
		return v.Minor, nil
	case FieldPatch:
		return v.Patch, nil
	case FieldPreRelease:
		return v.PreRelease, nil
	default:
		return "", fmt.Errorf("unknown field %q", name)
	}
}

func stripVersionPrefix(tag string) string {
	if strings.HasPrefix(tag, "v") || strings.HasPrefix(tag, "V") {
		return tag[1:]
	}
	return tag
}

// addCommits adds a commit count to a patch number without overflowing.
// Both arguments are ASCII digit strings, guaranteed by tagRe and describeSuffixRe.
func addCommits(patch, commits string) string {
	base, _ := new(big.Int).SetString(patch, 10)
	count, _ := new(big.Int).SetString(commits, 10)
	return base.Add(base, count).String()
}
