package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jaxxstorm/semtag"
)

// Version will be set by build process
var Version = "dev"

// errReported means the failure was already written by the error sink
var errReported = errors.New("tag is not a semantic version")

type CLI struct {
	Tag         *string `arg:"" optional:"" help:"Tag or git describe output to parse (default: describe the repository)"`
	Field       string  `short:"f" default:"version" enum:"version,major,minor,patch,prerelease" help:"Component to print"`
	Repo        string  `short:"r" help:"Repository path (default: current directory)"`
	Commitish   string  `short:"c" default:"HEAD" help:"Commit to describe when no tag is given"`
	TagPattern  string  `help:"Regex pattern to filter tags (e.g., '^sdk/')"`
	Abbrev      int     `default:"7" help:"Number of commit hash characters in describe output"`
	JSON        bool    `short:"j" help:"Output as JSON"`
	LogLevel    string  `default:"warn" enum:"debug,info,warn,error" help:"Log level for diagnostics on stderr"`
	ShowVersion bool    `help:"Show version information" name:"version"`
}

// output is the JSON shape printed with --json
type output struct {
	*semtag.ParsedVersion
	Version  string `json:"version"`
	Describe string `json:"describe,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name("semtag"),
		kong.Description("Parse git describe output into semantic version components"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	err := cli.Run()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	// Handle version flag
	if c.ShowVersion {
		return c.showVersion()
	}

	logger := newLogger(c.LogLevel)

	// nil means no TAG argument; an explicit "" is parsed and rejected
	if c.Tag != nil {
		return c.parseTag(logger, *c.Tag)
	}

	return c.describeRepository(logger)
}

func (c *CLI) showVersion() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "semtag",
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("semtag version %s\n", Version)
	return nil
}

func (c *CLI) parseTag(logger *slog.Logger, tag string) error {
	logger.Debug("parsing tag", slog.String("tag", tag))

	version, ok := semtag.Resolve(tag, semtag.ConsoleSink{Out: os.Stderr})
	if !ok {
		return errReported
	}

	return c.print(version, nil)
}

func (c *CLI) describeRepository(logger *slog.Logger) error {
	commitish := "HEAD"
	if c.Commitish != "" {
		commitish = c.Commitish
	}

	repoPath := c.Repo
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
	}

	logger.Debug("opening repository", slog.String("path", repoPath))
	repo, err := semtag.OpenRepository(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository %s: %w", repoPath, err)
	}

	described, err := semtag.Describe(semtag.DescribeOptions{
		Repository: repo,
		Commitish:  plumbing.Revision(commitish),
		TagPattern: c.TagPattern,
		Abbrev:     c.Abbrev,
	})
	if err != nil {
		return fmt.Errorf("describing %s: %w", commitish, err)
	}

	logger.Debug("described repository",
		slog.String("describe", described.String()),
		slog.Int("commits", described.Commits),
		slog.Bool("dirty", described.Dirty))
	if described.Dirty {
		logger.Warn("worktree has uncommitted changes", slog.String("path", repoPath))
	}

	version, ok := semtag.Resolve(described.Version(), semtag.ConsoleSink{Out: os.Stderr})
	if !ok {
		return errReported
	}

	return c.print(version, described)
}

func (c *CLI) print(version *semtag.ParsedVersion, described *semtag.DescribeResult) error {
	if c.JSON {
		out := output{
			ParsedVersion: version,
			Version:       version.String(),
		}
		if described != nil {
			out.Describe = described.String()
			out.Dirty = described.Dirty
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	value, err := version.Field(c.Field)
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
