package dirsyncer

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	logmock "mirrorsync/generated/mocks"
	"mirrorsync/internal/model"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	srcRoot     = "/data/src"
	replicaRoot = "/data/replica"
)

func getMockLogger(mockCtrl *gomock.Controller, any gomock.Matcher) *logmock.MockLogger {
	return allowAnyLogs(logmock.NewMockLogger(mockCtrl), any)
}

//allowAnyLogs must be called after the expectations of particular log calls, so that those are matched first.
func allowAnyLogs(loggerMock *logmock.MockLogger, any gomock.Matcher) *logmock.MockLogger {
	loggerMock.EXPECT().Debug(any).AnyTimes()
	loggerMock.EXPECT().Debug(any, any).AnyTimes()
	loggerMock.EXPECT().Info(any).AnyTimes()
	loggerMock.EXPECT().Info(any, any).AnyTimes()
	loggerMock.EXPECT().Warn(any).AnyTimes()
	loggerMock.EXPECT().Warn(any, any).AnyTimes()
	loggerMock.EXPECT().Error(any).AnyTimes()
	loggerMock.EXPECT().Error(any, any).AnyTimes()
	return loggerMock
}

//writeTree creates the entries under root. Keys ending with "/" are directories, others are files with the given content.
func writeTree(req *require.Assertions, fsys afero.Fs, root string, entries map[string]string) {
	req.NoError(fsys.MkdirAll(root, 0o755))
	for rel, content := range entries {
		p := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
		if strings.HasSuffix(rel, "/") {
			req.NoError(fsys.MkdirAll(p, 0o755))
			continue
		}
		req.NoError(fsys.MkdirAll(filepath.Dir(p), 0o755))
		req.NoError(afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
}

//readTree is the reverse of writeTree.
func readTree(req *require.Assertions, fsys afero.Fs, root string) map[string]string {
	entries := map[string]string{}
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			entries[rel+"/"] = ""
			return nil
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		entries[rel] = string(data)
		return nil
	})
	req.NoError(err)
	return entries
}

func describe(actions []model.SyncAction) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.String())
	}
	return out
}

func describeResults(results []model.SyncResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Action.String()+" "+string(r.Status))
	}
	return out
}

//faultyFs fails opening the listed paths, e.g. to simulate permission problems.
type faultyFs struct {
	afero.Fs
	failOpen map[string]error
}

func newFaultyFs(base afero.Fs, failOpen map[string]error) *faultyFs {
	cleaned := make(map[string]error, len(failOpen))
	for p, err := range failOpen {
		cleaned[filepath.Clean(p)] = err
	}
	return &faultyFs{Fs: base, failOpen: cleaned}
}

func (f *faultyFs) Open(name string) (afero.File, error) {
	if err, ok := f.failOpen[filepath.Clean(name)]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.Open(name)
}

func (f *faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if err, ok := f.failOpen[filepath.Clean(name)]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

type recordingReporter struct {
	mu      sync.Mutex
	results []model.SyncResult
}

func (r *recordingReporter) Report(res model.SyncResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) Results() []model.SyncResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SyncResult(nil), r.results...)
}
