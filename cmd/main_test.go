package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	output, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(output), runErr
}

// captureStderr runs fn with os.Stderr redirected and returns what it wrote
func captureStderr(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w

	runErr := fn()

	w.Close()
	os.Stderr = oldStderr

	output, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(output), runErr
}

// initTaggedRepo creates a repository in dir with tag on the first commit
// and extra commits on top
func initTaggedRepo(t *testing.T, dir, tag string, extra int) {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	workTree, err := repo.Worktree()
	require.NoError(t, err)

	signature := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}

	for i := 0; i <= extra; i++ {
		filename := "file_" + string(rune('a'+i)) + ".txt"
		require.NoError(t, os.WriteFile(dir+"/"+filename, []byte(filename), 0o644))
		_, err = workTree.Add(filename)
		require.NoError(t, err)

		hash, err := workTree.Commit("Commit "+filename, &git.CommitOptions{Author: signature})
		require.NoError(t, err)

		if i == 0 {
			_, err = repo.CreateTag(tag, hash, nil)
			require.NoError(t, err)
		}
	}
}

func TestCLIShowVersion(t *testing.T) {
	cli := &CLI{ShowVersion: true}

	output, err := captureStdout(t, cli.showVersion)
	require.NoError(t, err)
	require.Contains(t, output, "semtag version")
	require.Contains(t, output, "dev") // Default version should be "dev"
}

func TestCLIShowVersionJSON(t *testing.T) {
	cli := &CLI{ShowVersion: true, JSON: true}

	output, err := captureStdout(t, cli.showVersion)
	require.NoError(t, err)

	var versionInfo map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &versionInfo))
	require.Equal(t, "dev", versionInfo["version"])
	require.Equal(t, "semtag", versionInfo["name"])
}

func TestCLIParseTag(t *testing.T) {
	tests := []struct {
		tag      string
		field    string
		expected string
	}{
		{"v1.0.2", "", "1.0.2"},
		{"v1.0.2-6-g778787d", "version", "1.0.8"},
		{"v1.0.2-pre-6-g778787d", "version", "1.0.8-pre"},
		{"v1.0.2-pre-6-g778787d", "patch", "8"},
		{"v1.0.2-pre-6-g778787d", "prerelease", "-pre"},
		{"v1.0.2-pre", "patch", "2"},
		{"v3.4.5", "major", "3"},
		{"v3.4.5", "minor", "4"},
	}

	for _, test := range tests {
		t.Run(test.tag+"/"+test.field, func(t *testing.T) {
			cli := &CLI{Tag: &test.tag, Field: test.field}

			output, err := captureStdout(t, cli.Run)
			require.NoError(t, err)
			require.Equal(t, test.expected+"\n", output)
		})
	}
}

func TestCLIParseTagJSON(t *testing.T) {
	tag := "v1.0.2-pre-6-g778787d"
	cli := &CLI{Tag: &tag, JSON: true}

	output, err := captureStdout(t, cli.Run)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	require.Equal(t, "1", result["major"])
	require.Equal(t, "0", result["minor"])
	require.Equal(t, "8", result["patch"])
	require.Equal(t, "-pre", result["prerelease"])
	require.Equal(t, "1.0.8-pre", result["version"])
	require.NotContains(t, result, "describe")
}

func TestCLIParseTagFailure(t *testing.T) {
	tests := []struct {
		name string
		tag  string
	}{
		{"Not a version", "Beta1"},
		{"Explicit empty tag", ""},
		{"Stacked describe suffix", "v1.0.2-4-gabc-5-gdef"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Run from a tagged repository so describing instead of parsing would succeed
			dir := t.TempDir()
			initTaggedRepo(t, dir, "v1.0.2", 0)
			cli := &CLI{Tag: &test.tag, Repo: dir}

			var stdout string
			stderr, err := captureStderr(t, func() error {
				var runErr error
				stdout, runErr = captureStdout(t, cli.Run)
				return runErr
			})

			require.ErrorIs(t, err, errReported)
			require.Empty(t, stdout)
			require.Contains(t, stderr, "Tag '"+test.tag+"' does not follow the semantic version format.")
		})
	}
}

func TestCLIDescribeRepository(t *testing.T) {
	dir := t.TempDir()
	initTaggedRepo(t, dir, "v1.0.2", 2)

	t.Run("Plain output", func(t *testing.T) {
		cli := &CLI{Repo: dir}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.Equal(t, "1.0.4\n", output)
	})

	t.Run("JSON output", func(t *testing.T) {
		cli := &CLI{Repo: dir, JSON: true, Abbrev: 10}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(output), &result))
		require.Equal(t, "4", result["patch"])
		require.Equal(t, "1.0.4", result["version"])
		require.Regexp(t, `^v1\.0\.2-2-g[0-9a-f]{10}$`, result["describe"])
	})

	t.Run("Tagged commitish", func(t *testing.T) {
		cli := &CLI{Repo: dir, Commitish: "v1.0.2", Field: "patch"}

		output, err := captureStdout(t, cli.Run)
		require.NoError(t, err)
		require.Equal(t, "2\n", output)
	})

	t.Run("Tag pattern excludes every tag", func(t *testing.T) {
		cli := &CLI{Repo: dir, TagPattern: "^sdk/"}

		_, err := captureStdout(t, cli.Run)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no tag found")
	})
}

func TestCLIDescribeNonSemanticTag(t *testing.T) {
	dir := t.TempDir()
	initTaggedRepo(t, dir, "Beta1", 0)

	cli := &CLI{Repo: dir}

	stderr, err := captureStderr(t, func() error {
		_, runErr := captureStdout(t, cli.Run)
		return runErr
	})
	require.ErrorIs(t, err, errReported)
	require.Contains(t, stderr, "Tag 'Beta1' does not follow the semantic version format.")
}

func TestCLIDescribeNonGitRepo(t *testing.T) {
	cli := &CLI{Repo: t.TempDir()}

	_, err := captureStdout(t, cli.Run)
	require.Error(t, err)
	require.Contains(t, err.Error(), "opening repository")
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("INFO"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelWarn, parseLogLevel(""))
}
