package dirsyncer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logmock "mirrorsync/generated/mocks"

	"github.com/golang/mock/gomock"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDirScanner_ComputeActions(t *testing.T) {
	tests := []struct {
		name    string
		src     map[string]string
		replica map[string]string
		want    []string
	}{
		{
			name:    "new subdir and stale file",
			src:     map[string]string{"a.txt": "hi", "sub/b.txt": "yo"},
			replica: map[string]string{"a.txt": "hi", "c.txt": "old"},
			want:    []string{"CREATE_DIR sub", "COPY_FILE sub/b.txt", "DELETE_FILE c.txt"},
		},
		{
			name:    "replica file where source has dir",
			src:     map[string]string{"x/f.txt": "f"},
			replica: map[string]string{"x": "i am a file"},
			want:    []string{"DELETE_FILE x", "CREATE_DIR x", "COPY_FILE x/f.txt"},
		},
		{
			name:    "replica dir where source has file",
			src:     map[string]string{"x": "file now"},
			replica: map[string]string{"x/inner.txt": "i", "x/deep/more.txt": "m"},
			want:    []string{"DELETE_FILE x/deep/more.txt", "DELETE_DIR x/deep", "DELETE_FILE x/inner.txt", "DELETE_DIR x", "COPY_FILE x"},
		},
		{
			name:    "identical trees",
			src:     map[string]string{"a.txt": "hi", "sub/b.txt": "yo", "empty/": ""},
			replica: map[string]string{"a.txt": "hi", "sub/b.txt": "yo", "empty/": ""},
			want:    []string{},
		},
		{
			name:    "same size, other content",
			src:     map[string]string{"a.txt": "hi"},
			replica: map[string]string{"a.txt": "ho"},
			want:    []string{"COPY_FILE a.txt"},
		},
		{
			name:    "empty source dir is created",
			src:     map[string]string{"empty/": "", "nested/empty/": ""},
			replica: map[string]string{},
			want:    []string{"CREATE_DIR empty", "CREATE_DIR nested", "CREATE_DIR nested/empty"},
		},
		{
			name:    "replica-only subtree deleted bottom-up",
			src:     map[string]string{"keep.txt": "k"},
			replica: map[string]string{"keep.txt": "k", "old/f.txt": "f", "old/deep/g.txt": "g"},
			want:    []string{"DELETE_FILE old/deep/g.txt", "DELETE_DIR old/deep", "DELETE_FILE old/f.txt", "DELETE_DIR old"},
		},
		{
			name:    "deletions come after creations",
			src:     map[string]string{"b/new.txt": "n"},
			replica: map[string]string{"a/old.txt": "o", "b/": ""},
			want:    []string{"COPY_FILE b/new.txt", "DELETE_FILE a/old.txt", "DELETE_DIR a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requires := require.New(t)
			mockCtrl := gomock.NewController(t)
			fsys := afero.NewMemMapFs()
			writeTree(requires, fsys, srcRoot, tt.src)
			writeTree(requires, fsys, replicaRoot, tt.replica)

			actions, err := NewDirScanner(getMockLogger(mockCtrl, gomock.Any()), fsys, clockwork.NewFakeClock()).
				ComputeActions(context.Background(), srcRoot, replicaRoot)

			requires.NoError(err)
			requires.Equal(tt.want, describe(actions))
		})
	}
}

func TestDirScanner_ContentOverTimestamp(t *testing.T) {
	requires := require.New(t)
	mockCtrl := gomock.NewController(t)
	fsys := afero.NewMemMapFs()
	writeTree(requires, fsys, srcRoot, map[string]string{"a.txt": "same"})
	writeTree(requires, fsys, replicaRoot, map[string]string{"a.txt": "same"})
	older := time.Now().Add(-72 * time.Hour)
	requires.NoError(fsys.Chtimes(filepath.Join(replicaRoot, "a.txt"), older, older))

	actions, err := NewDirScanner(getMockLogger(mockCtrl, gomock.Any()), fsys, clockwork.NewFakeClock()).
		ComputeActions(context.Background(), srcRoot, replicaRoot)

	requires.NoError(err)
	requires.Empty(actions)
}

func TestDirScanner_MissingReplicaRoot(t *testing.T) {
	requires := require.New(t)
	mockCtrl := gomock.NewController(t)
	fsys := afero.NewMemMapFs()
	writeTree(requires, fsys, srcRoot, map[string]string{"a.txt": "hi", "sub/b.txt": "yo"})

	actions, err := NewDirScanner(getMockLogger(mockCtrl, gomock.Any()), fsys, clockwork.NewFakeClock()).
		ComputeActions(context.Background(), srcRoot, replicaRoot)

	requires.NoError(err)
	requires.Equal([]string{"COPY_FILE a.txt", "CREATE_DIR sub", "COPY_FILE sub/b.txt"}, describe(actions))
}

func TestDirScanner_SourceRootProblems(t *testing.T) {
	requires := require.New(t)
	mockCtrl := gomock.NewController(t)
	fsys := afero.NewMemMapFs()
	writeTree(requires, fsys, replicaRoot, map[string]string{"a.txt": "hi"})
	scanner := NewDirScanner(getMockLogger(mockCtrl, gomock.Any()), fsys, clockwork.NewFakeClock())

	_, err := scanner.ComputeActions(context.Background(), srcRoot, replicaRoot)
	requires.Error(err)
	requires.True(IsConfigurationError(err))
	requires.ErrorIs(err, os.ErrNotExist)

	requires.NoError(afero.WriteFile(fsys, srcRoot, []byte("not a dir"), 0o644))
	_, err = scanner.ComputeActions(context.Background(), srcRoot, replicaRoot)
	requires.True(IsConfigurationError(err))
}

func TestDirScanner_ComparisonErrorTriggersCopy(t *testing.T) {
	requires := require.New(t)
	mockCtrl := gomock.NewController(t)
	base := afero.NewMemMapFs()
	writeTree(requires, base, srcRoot, map[string]string{"a.txt": "hi", "b.txt": "same"})
	writeTree(requires, base, replicaRoot, map[string]string{"a.txt": "hi", "b.txt": "same"})
	fsys := newFaultyFs(base, map[string]error{filepath.Join(replicaRoot, "a.txt"): os.ErrPermission})

	loggerMock := logmock.NewMockLogger(mockCtrl)
	loggerMock.EXPECT().Warn("file comparison failed, the file will be copied", gomock.Any(), gomock.Any()).Times(1)
	actions, err := NewDirScanner(allowAnyLogs(loggerMock, gomock.Any()), fsys, clockwork.NewFakeClock()).
		ComputeActions(context.Background(), srcRoot, replicaRoot)

	requires.NoError(err)
	requires.Equal([]string{"COPY_FILE a.txt"}, describe(actions))
}

func TestDirScanner_UnreadableSourceDirIsNotWiped(t *testing.T) {
	requires := require.New(t)
	mockCtrl := gomock.NewController(t)
	base := afero.NewMemMapFs()
	writeTree(requires, base, srcRoot, map[string]string{"locked/secret.txt": "s", "open/new.txt": "n"})
	writeTree(requires, base, replicaRoot, map[string]string{"locked/secret.txt": "s", "locked/extra.txt": "e", "open/": ""})
	fsys := newFaultyFs(base, map[string]error{filepath.Join(srcRoot, "locked"): os.ErrPermission})

	actions, err := NewDirScanner(getMockLogger(mockCtrl, gomock.Any()), fsys, clockwork.NewFakeClock()).
		ComputeActions(context.Background(), srcRoot, replicaRoot)

	requires.NoError(err)
	requires.Equal([]string{"COPY_FILE open/new.txt"}, describe(actions))
}

func TestDirScanner_Canceled(t *testing.T) {
	requires := require.New(t)
	mockCtrl := gomock.NewController(t)
	fsys := afero.NewMemMapFs()
	writeTree(requires, fsys, srcRoot, map[string]string{"a.txt": "hi"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDirScanner(getMockLogger(mockCtrl, gomock.Any()), fsys, clockwork.NewFakeClock()).ComputeActions(ctx, srcRoot, replicaRoot)

	requires.ErrorIs(err, context.Canceled)
}
