package dirsyncer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mirrorsync/internal/log"
	"mirrorsync/internal/model"
	"mirrorsync/pkg/helpers/iout"
	"mirrorsync/pkg/helpers/run"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

//ActionReporter receives the outcome of every executed action (the action log).
type ActionReporter interface {
	Report(res model.SyncResult)
}

//Executor applies sync actions to the replica, one by one, in the given order.
type Executor struct {
	log                  log.Logger
	fs                   afero.Fs
	clock                clockwork.Clock
	reporter             ActionReporter
	srcRoot, replicaRoot string
}

func NewExecutor(logger log.Logger, fsys afero.Fs, clock clockwork.Clock, reporter ActionReporter,
	srcRoot, replicaRoot string,
) *Executor {
	return &Executor{log: logger, fs: fsys, clock: clock, reporter: reporter, srcRoot: srcRoot, replicaRoot: replicaRoot}
}

//Apply executes the actions strictly in order. A failed action doesn't stop the rest:
//unrelated parts of the tree can still be synchronized.
func (e *Executor) Apply(ctx context.Context, actions []model.SyncAction) []model.SyncResult {
	results := make([]model.SyncResult, 0, len(actions))
	for _, action := range actions {
		err := run.WithError(func() error { return e.process(ctx, action) })

		var res model.SyncResult
		if err != nil {
			res = model.Failed(action, err, e.clock.Now())
			e.log.Error("failed to execute the action", log.Cause(err),
				log.Uint64("actionID", action.ID), log.String("action", action.String()))
		} else {
			res = model.Succeeded(action, e.clock.Now())
			e.log.Debug("action executed", log.Uint64("actionID", action.ID), log.String("action", action.String()))
		}
		e.reporter.Report(res)
		results = append(results, res)
	}
	return results
}

func (e *Executor) process(ctx context.Context, action model.SyncAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := filepath.Join(e.srcRoot, filepath.FromSlash(action.Path))
	dst := filepath.Join(e.replicaRoot, filepath.FromSlash(action.Path))

	var err error
	switch action.Kind {
	case model.ActCreateDir:
		err = iout.MakeDir(e.fs, dst, e.dirPerm(src))
	case model.ActCopyFile:
		err = iout.CopyFile(ctx, e.fs, src, dst)
	case model.ActDeleteFile:
		err = iout.RemoveFile(e.fs, dst)
	case model.ActDeleteDir:
		err = iout.RemoveDir(e.fs, dst)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
	if err != nil {
		return ioError(string(action.Kind), action.Path, err)
	}
	return nil
}

//dirPerm mirrors the permission bits of the source dir; the owner always keeps rwx.
func (e *Executor) dirPerm(src string) fs.FileMode {
	if info, err := e.fs.Stat(src); err == nil && info.IsDir() {
		return info.Mode().Perm() | 0o700
	}
	return os.ModePerm
}
