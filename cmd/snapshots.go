package main

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/bento/models"
	"github.com/aukilabs/bento/snapshot"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const snapshotExt = ".snapshot"

// loadSnapshots restores the indexes saved in dir. A missing dir is not an
// error.
func loadSnapshots(ctx context.Context, dir string, indexes *models.IndexStore) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New("reading snapshot directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}

		filename := filepath.Join(dir, e.Name())
		index, err := loadSnapshot(ctx, filename, indexes)
		if err != nil {
			return err
		}

		logs.WithTag("index", index.Name).
			WithTag("file", filename).
			WithTag("nodes", index.Stats().Nodes).
			Info("index restored from snapshot")
	}
	return nil
}

func loadSnapshot(ctx context.Context, filename string, indexes *models.IndexStore) (*models.Index, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.New("opening snapshot failed").
			WithTag("file", filename).
			Wrap(err)
	}
	defer f.Close()

	snap, err := snapshot.Read(f)
	if err != nil {
		return nil, errors.New("reading snapshot failed").
			WithTag("file", filename).
			Wrap(err)
	}

	index, err := indexes.Restore(ctx, snap)
	if err != nil {
		return nil, errors.New("restoring snapshot failed").
			WithTag("file", filename).
			Wrap(err)
	}
	return index, nil
}

// saveSnapshots writes a snapshot of every index in dir and removes the
// snapshots of indexes that no longer exist. Files are written under a
// temporary name first and then renamed.
func saveSnapshots(dir string, indexes *models.IndexStore) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New("creating snapshot directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	saved := make(map[string]struct{})
	for _, index := range indexes.List() {
		snap, err := index.Snapshot()
		if err != nil {
			return err
		}

		name := snapshotFilename(index.Name)
		filename := filepath.Join(dir, name)
		if err := writeSnapshot(filename, snap); err != nil {
			return err
		}
		saved[name] = struct{}{}

		logs.WithTag("index", index.Name).
			WithTag("file", filename).
			WithTag("nodes", len(snap.Nodes)).
			Info("index snapshot saved")
	}

	return removeStaleSnapshots(dir, saved)
}

func removeStaleSnapshots(dir string, saved map[string]struct{}) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New("reading snapshot directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		if _, ok := saved[e.Name()]; ok {
			continue
		}

		filename := filepath.Join(dir, e.Name())
		if err := os.Remove(filename); err != nil {
			return errors.New("removing stale snapshot failed").
				WithTag("file", filename).
				Wrap(err)
		}

		logs.WithTag("file", filename).
			Info("stale snapshot removed")
	}
	return nil
}

func writeSnapshot(filename string, snap snapshot.Snapshot) error {
	tmp := filename + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return errors.New("creating snapshot file failed").
			WithTag("file", tmp).
			Wrap(err)
	}

	if err := snapshot.Write(f, snap); err != nil {
		f.Close()
		return errors.New("writing snapshot failed").
			WithTag("file", tmp).
			Wrap(err)
	}

	if err := f.Close(); err != nil {
		return errors.New("closing snapshot file failed").
			WithTag("file", tmp).
			Wrap(err)
	}

	if err := os.Rename(tmp, filename); err != nil {
		return errors.New("renaming snapshot file failed").
			WithTag("file", filename).
			Wrap(err)
	}
	return nil
}

// snapshotFilename returns the file name of the index snapshot. Names are hex
// encoded so that distinct index names never share a file.
func snapshotFilename(name string) string {
	return hex.EncodeToString([]byte(name)) + snapshotExt
}
