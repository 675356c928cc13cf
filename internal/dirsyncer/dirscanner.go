package dirsyncer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"mirrorsync/internal/log"
	"mirrorsync/internal/model"
	"mirrorsync/pkg/helpers/iout"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

//DirScanner walks the source and replica trees in lock-step and works out the actions
//that turn the replica into a copy of the source. It never modifies the filesystem.
type DirScanner struct {
	log   log.Logger
	fs    afero.Fs
	clock clockwork.Clock
	cmp   *Comparator
}

func NewDirScanner(logger log.Logger, fsys afero.Fs, clock clockwork.Clock) *DirScanner {
	return &DirScanner{log: logger, fs: fsys, clock: clock, cmp: NewComparator(fsys)}
}

//ComputeActions returns the actions in the order they must be applied:
//creations and updates first (a mismatched replica entry is deleted right before it is replaced),
//then the deletions of replica-only entries, each subtree bottom-up.
//Per-entry read failures are logged and never returned; only an unreadable source root
//or a canceled context make it fail.
func (d *DirScanner) ComputeActions(ctx context.Context, srcRoot, replicaRoot string) ([]model.SyncAction, error) {
	d.log.Debug("scan started", log.String("src", srcRoot), log.String("replica", replicaRoot))
	start := d.clock.Now()

	info, err := d.fs.Stat(srcRoot)
	if err == nil && !info.IsDir() {
		err = &fs.PathError{Op: "scan", Path: srcRoot, Err: errNotDir}
	}
	if err != nil {
		return nil, &ConfigurationError{Root: "source", Path: srcRoot, Err: err}
	}

	w := &treeWalk{ctx: ctx, d: d, srcRoot: srcRoot, replicaRoot: replicaRoot}
	if err := w.diffDir("."); err != nil {
		return nil, err
	}
	actions := append(w.upserts, w.removals...)

	d.log.Debug("scan finished, it took "+d.clock.Since(start).String(),
		log.Int("upserts", len(w.upserts)), log.Int("removals", len(w.removals)))
	return actions, nil
}

var errNotDir = errors.New("not a directory")

//treeWalk holds the state of one ComputeActions call.
type treeWalk struct {
	ctx                  context.Context
	d                    *DirScanner
	srcRoot, replicaRoot string
	upserts, removals    []model.SyncAction
}

func (w *treeWalk) srcPath(rel string) string {
	return filepath.Join(w.srcRoot, filepath.FromSlash(rel))
}

func (w *treeWalk) replicaPath(rel string) string {
	return filepath.Join(w.replicaRoot, filepath.FromSlash(rel))
}

//diffDir handles a directory that exists in both trees.
func (w *treeWalk) diffDir(dir string) error {
	eMap := model.NewDirEntriesMap()

	srcEntries, err := w.list(w.srcPath(dir), dir)
	if err != nil {
		// an unreadable source dir must not look empty, otherwise its replica would be wiped
		w.d.log.Warn("cannot read source dir, its subtree is skipped", log.String("path", dir), log.Cause(err))
		return nil
	}
	for _, e := range srcEntries {
		eMap.SetSrc(e)
	}

	replicaEntries, err := w.list(w.replicaPath(dir), dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.d.log.Warn("cannot read replica dir, its subtree is skipped", log.String("path", dir), log.Cause(err))
		return nil
	}
	for _, e := range replicaEntries {
		eMap.SetReplica(e)
	}

	for _, pair := range eMap.Pairs() {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		switch {
		case pair.OnlyInReplica():
			w.removals = w.deleteTree(w.removals, *pair.Replica)
		case pair.KindMismatch():
			w.upserts = w.deleteTree(w.upserts, *pair.Replica)
			if err := w.createTree(*pair.Src); err != nil {
				return err
			}
		case pair.OnlyInSource():
			if err := w.createTree(*pair.Src); err != nil {
				return err
			}
		case pair.Src.IsDir():
			if err := w.diffDir(pair.Src.Path); err != nil {
				return err
			}
		default:
			w.compareFiles(pair.Src.Path)
		}
	}
	return nil
}

//createTree handles a source entry with no counterpart in the replica.
func (w *treeWalk) createTree(e model.PathEntry) error {
	if !e.IsDir() {
		w.upserts = append(w.upserts, model.CopyFile(e.Path))
		return nil
	}
	w.upserts = append(w.upserts, model.CreateDirectory(e.Path))

	children, err := w.list(w.srcPath(e.Path), e.Path)
	if err != nil {
		w.d.log.Warn("cannot read source dir, its content is skipped", log.String("path", e.Path), log.Cause(err))
		return nil
	}
	for _, child := range children {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if err := w.createTree(child); err != nil {
			return err
		}
	}
	return nil
}

//deleteTree appends the deletions of a replica entry, descendants before the entry itself.
func (w *treeWalk) deleteTree(dst []model.SyncAction, e model.PathEntry) []model.SyncAction {
	if !e.IsDir() {
		return append(dst, model.DeleteFile(e.Path))
	}
	children, err := w.list(w.replicaPath(e.Path), e.Path)
	if err != nil {
		// the dir removal will fail and be reported if something is left inside
		w.d.log.Warn("cannot read replica dir scheduled for deletion", log.String("path", e.Path), log.Cause(err))
	}
	for _, child := range children {
		dst = w.deleteTree(dst, child)
	}
	return append(dst, model.DeleteDirectory(e.Path))
}

func (w *treeWalk) compareFiles(rel string) {
	identical, err := w.d.cmp.Identical(w.ctx, w.srcPath(rel), w.replicaPath(rel))
	if err != nil {
		w.d.log.Warn("file comparison failed, the file will be copied", log.String("path", rel), log.Cause(err))
	}
	if err != nil || !identical {
		w.upserts = append(w.upserts, model.CopyFile(rel))
	}
}

//list reads the entries of the directory at absPath and names them relative to rel.
func (w *treeWalk) list(absPath, rel string) ([]model.PathEntry, error) {
	infos, err := iout.ReadDirSorted(w.d.fs, absPath)
	if err != nil {
		return nil, err
	}
	dir := model.PathEntry{Path: rel, Kind: model.KindDirectory}
	entries := make([]model.PathEntry, 0, len(infos))
	for _, info := range infos {
		kind := model.KindFile
		if info.IsDir() {
			kind = model.KindDirectory
		}
		entries = append(entries, model.PathEntry{Path: dir.Child(info.Name()), Kind: kind})
	}
	return entries, nil
}
