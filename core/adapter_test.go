package core

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/internal/pathutil"
)

// memAdapter is an in-memory backends.Adapter recording primitive calls.
type memAdapter struct {
	files map[string][]byte

	// bareNames makes List return names relative to the listed directory
	bareNames bool

	PutErr    error
	GetErr    error
	ListErr   error
	RemoveErr map[string]error

	calls []string
}

func newMemAdapter(files ...string) *memAdapter {
	a := &memAdapter{files: make(map[string][]byte)}
	for _, f := range files {
		a.files[f] = []byte("content of " + f)
	}
	return a
}

func (a *memAdapter) record(call string) {
	a.calls = append(a.calls, call)
}

func (a *memAdapter) count(prefix string) int {
	n := 0
	for _, c := range a.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (a *memAdapter) Put(ctx context.Context, localFile, assetFile string) error {
	a.record("put " + assetFile)
	if a.PutErr != nil {
		return a.PutErr
	}
	data, err := os.ReadFile(localFile)
	if err != nil {
		return err
	}
	a.files[assetFile] = data
	return nil
}

func (a *memAdapter) Get(ctx context.Context, assetFile, localFile string) error {
	a.record("get " + assetFile)
	if a.GetErr != nil {
		return a.GetErr
	}
	data, ok := a.files[assetFile]
	if !ok {
		return errors.New("no such file")
	}
	return os.WriteFile(localFile, data, 0644)
}

func (a *memAdapter) List(ctx context.Context, dir string) ([]string, error) {
	a.record("list " + dir)
	if a.ListErr != nil {
		return nil, a.ListErr
	}

	var files []string
	found := dir == ""
	for name := range a.files {
		if pathutil.Dir(name) == dir || (dir == "" && pathutil.Dir(name) == ".") {
			if a.bareNames {
				files = append(files, pathutil.Base(name))
			} else {
				files = append(files, name)
			}
		}
		if strings.HasPrefix(name, dir+"/") {
			found = true
		}
	}
	if !found {
		return nil, backends.ErrNotFound
	}
	sort.Strings(files)
	return files, nil
}

func (a *memAdapter) Remove(ctx context.Context, assetFile string) error {
	a.record("remove " + assetFile)
	if err := a.RemoveErr[assetFile]; err != nil {
		return err
	}
	delete(a.files, assetFile)
	return nil
}

func (a *memAdapter) Type() string { return "memory" }

func (a *memAdapter) Close() error { return nil }

// renamingAdapter adds a native rename.
type renamingAdapter struct {
	*memAdapter
	moved [][2]string
}

func (a *renamingAdapter) Move(ctx context.Context, oldFile, newFile string) error {
	a.record("move " + oldFile)
	a.moved = append(a.moved, [2]string{oldFile, newFile})
	a.files[newFile] = a.files[oldFile]
	delete(a.files, oldFile)
	return nil
}

// fixedListAdapter returns a canned listing, whatever the directory.
type fixedListAdapter struct {
	*memAdapter
	listing []string
	listed  []string
}

func (a *fixedListAdapter) List(ctx context.Context, dir string) ([]string, error) {
	a.listed = append(a.listed, dir)
	return a.listing, nil
}
