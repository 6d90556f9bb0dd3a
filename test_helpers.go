package semtag

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testRepoFSCreate creates a new filesystem-based git repository for testing
func testRepoFSCreate(path string) (*git.Repository, error) {
	fs := osfs.New(path)
	storage := filesystem.NewStorage(fs, cache.NewObjectLRUDefault())
	return git.Init(storage, fs)
}

// testRepoCommit writes filename and commits it, returning the commit hash
func testRepoCommit(repo *git.Repository, filename string) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	err = writeFile(workTree.Filesystem, filename, "Content for "+filename)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	_, err = workTree.Add(filename)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit("Commit "+filename, &git.CommitOptions{Author: testSignature})
}

// testRepoCommitWithParents commits filename on top of the given parents,
// first parent first, and moves HEAD to the new commit
func testRepoCommitWithParents(repo *git.Repository, filename string, parents ...plumbing.Hash) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	err = writeFile(workTree.Filesystem, filename, "Content for "+filename)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	_, err = workTree.Add(filename)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit("Commit "+filename, &git.CommitOptions{
		Author:  testSignature,
		Parents: parents,
	})
}

// testRepoTaggedHistory creates one commit per tag and tags it, then adds
// extra untagged commits on top
func testRepoTaggedHistory(repo *git.Repository, tags []string, extra int) (*git.Repository, error) {
	for _, tag := range tags {
		hash, err := testRepoCommit(repo, "file_"+tag+".txt")
		if err != nil {
			return nil, err
		}

		if _, err := repo.CreateTag(tag, hash, nil); err != nil {
			return nil, err
		}
	}

	for i := 0; i < extra; i++ {
		if _, err := testRepoCommit(repo, "extra_"+string(rune('a'+i))+".txt"); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

// testRepoAnnotatedTag creates an annotated tag on hash
func testRepoAnnotatedTag(repo *git.Repository, name string, hash plumbing.Hash) error {
	_, err := repo.CreateTag(name, hash, &git.CreateTagOptions{
		Tagger:  testSignature,
		Message: "Release " + name,
	})
	return err
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
