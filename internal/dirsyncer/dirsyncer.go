package dirsyncer

import (
	"context"
	"io/fs"

	"mirrorsync/internal/log"
	"mirrorsync/internal/model"
	"mirrorsync/internal/settings"
	"mirrorsync/pkg/helpers/iout"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

//DirSyncer performs ticks: one full comparison of the trees followed by the execution of the resulting actions.
type DirSyncer struct {
	log      log.Logger
	settings settings.Settings
	fs       afero.Fs
	clock    clockwork.Clock
	scanner  *DirScanner
	executor *Executor
}

type Option func(*DirSyncer)

//WithFs replaces the OS filesystem, e.g. with afero.NewMemMapFs() in tests.
func WithFs(fsys afero.Fs) Option {
	return func(d *DirSyncer) { d.fs = fsys }
}

func WithClock(clock clockwork.Clock) Option {
	return func(d *DirSyncer) { d.clock = clock }
}

func New(logger log.Logger, stg settings.Settings, reporter ActionReporter, opts ...Option) *DirSyncer {
	d := &DirSyncer{log: logger, settings: stg, fs: afero.NewOsFs(), clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(d)
	}
	d.scanner = NewDirScanner(logger, d.fs, d.clock)
	d.executor = NewExecutor(logger, d.fs, d.clock, reporter, stg.SrcDir, stg.ReplicaDir)
	return d
}

//SyncOnce runs one tick. Problems with single entries end up in the report;
//the returned error means the tick could not run at all (e.g. the source root is gone),
//in which case the replica is left untouched.
func (d *DirSyncer) SyncOnce(ctx context.Context) (model.Report, error) {
	report := model.Report{StartedAt: d.clock.Now()}

	if err := d.checkRoots(ctx); err != nil {
		return report, err
	}

	actions, err := d.scanner.ComputeActions(ctx, d.settings.SrcDir, d.settings.ReplicaDir)
	if err != nil {
		return report, err
	}

	report.Results = d.executor.Apply(ctx, actions)
	report.FinishedAt = d.clock.Now()

	fields := []log.Field{
		log.Int("actions", len(actions)),
		log.Int("succeeded", report.Succeeded()),
		log.Int("failed", report.Failed()),
		log.Duration("took", report.Duration()),
	}
	if report.Failed() > 0 {
		d.log.Warn("sync finished with failures", fields...)
	} else {
		d.log.Info("sync finished", fields...)
	}
	return report, nil
}

func (d *DirSyncer) checkRoots(ctx context.Context) error {
	info, err := d.fs.Stat(d.settings.SrcDir)
	if err == nil && !info.IsDir() {
		err = &fs.PathError{Op: "stat", Path: d.settings.SrcDir, Err: errNotDir}
	}
	if err != nil {
		return &ConfigurationError{Root: "source", Path: d.settings.SrcDir, Err: err}
	}

	if _, err := d.fs.Stat(d.settings.ReplicaDir); err != nil {
		d.log.Info("replica dir is absent, creating it", log.String("path", d.settings.ReplicaDir))
	}
	if err := iout.EnsureDirExists(ctx, d.fs, d.settings.ReplicaDir); err != nil {
		return &ConfigurationError{Root: "replica", Path: d.settings.ReplicaDir, Err: err}
	}
	return nil
}
