package iout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

//ChunkSize is the size of the blocks read while copying or comparing files.
const ChunkSize = 64 * 1024

//readerWithContext allows to perform a cancellable read operation.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func newReaderWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &readerWithContext{ctx: ctx, r: r}
}

func (r *readerWithContext) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}

//EnsureDirExists makes the directory (with parents) unless it is already there.
func EnsureDirExists(ctx context.Context, fsys afero.Fs, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fsys.MkdirAll(path, os.ModePerm); err != nil {
		return fmt.Errorf("cannot make dir: %w", err)
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot make dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot make dir: %w", &fs.PathError{Op: "mkdir", Path: path, Err: syscall.ENOTDIR})
	}
	return nil
}

//MakeDir creates exactly one directory; its parent must exist.
func MakeDir(fsys afero.Fs, path string, perm fs.FileMode) error {
	if err := fsys.Mkdir(path, perm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if info, sErr := fsys.Stat(path); sErr == nil && info.IsDir() {
				return nil
			}
		}
		return fmt.Errorf("cannot make dir: %w", err)
	}
	return nil
}

func IsErrNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

//RemoveFile removes a non-directory entry. A symlink is removed itself, whatever it points to.
func RemoveFile(fsys afero.Fs, path string) error {
	info, err := lstat(fsys, path)
	if err != nil {
		return fmt.Errorf("cannot remove file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot remove file: %w", &fs.PathError{Op: "remove", Path: path, Err: syscall.EISDIR})
	}
	if err := fsys.Remove(path); err != nil {
		return fmt.Errorf("cannot remove file: %w", err)
	}
	return nil
}

//RemoveDir removes an empty directory. A non-empty one is an error.
func RemoveDir(fsys afero.Fs, path string) error {
	info, err := lstat(fsys, path)
	if err != nil {
		return fmt.Errorf("cannot remove dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot remove dir: %w", &fs.PathError{Op: "remove", Path: path, Err: syscall.ENOTDIR})
	}
	names, err := afero.ReadDir(fsys, path)
	if err != nil {
		return fmt.Errorf("cannot remove dir: %w", err)
	}
	if len(names) > 0 {
		return fmt.Errorf("cannot remove dir: %w", &fs.PathError{Op: "remove", Path: path, Err: syscall.ENOTEMPTY})
	}
	if err := fsys.Remove(path); err != nil {
		return fmt.Errorf("cannot remove dir: %w", err)
	}
	return nil
}

//CopyFile copies the entry at the source path (must be a regular file) to the specified destination,
//overwriting it. The parent dir of the destination must exist.
//The copied file gets the source's permission bits and modTime.
func CopyFile(ctx context.Context, fsys afero.Fs, srcPath, dstPath string) error {
	srcInfo, err := fsys.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("cannot copy file: %w", err)
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("cannot copy file: %w", &fs.PathError{Op: "copy", Path: srcPath, Err: syscall.EISDIR})
	}
	if err := clearDst(fsys, dstPath); err != nil {
		return fmt.Errorf("cannot copy file: %w", err)
	}
	if err := copyFileContents(ctx, fsys, srcPath, dstPath, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("cannot copy file: %w", err)
	}
	if err := fsys.Chmod(dstPath, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("cannot set file mode: %w", err)
	}
	if err := fsys.Chtimes(dstPath, time.Now(), srcInfo.ModTime()); err != nil {
		return fmt.Errorf("cannot set file modification time: %w", err)
	}
	return nil
}

//clearDst removes a destination that cannot be overwritten in place:
//a symlink (the content would be written outside the tree) or a file without the owner write bit.
func clearDst(fsys afero.Fs, dst string) error {
	info, err := lstat(fsys, dst)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	if info.Mode()&fs.ModeSymlink != 0 || info.Mode().Perm()&0o200 == 0 {
		return fsys.Remove(dst)
	}
	return nil
}

//lstat doesn't follow symlinks if the filesystem supports that.
func lstat(fsys afero.Fs, path string) (fs.FileInfo, error) {
	if l, ok := fsys.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return fsys.Stat(path)
}

func copyFileContents(ctx context.Context, fsys afero.Fs, src, dst string, perm fs.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("cannot create file: %w", err)
	}
	defer out.Close()

	buf := make([]byte, ChunkSize)
	if _, err = io.CopyBuffer(out, newReaderWithContext(ctx, in), buf); err != nil {
		return fmt.Errorf("cannot read/write file content: %w", err)
	}
	return out.Sync()
}

//SameContents compares two files byte by byte. Files of different sizes are rejected without reading.
func SameContents(ctx context.Context, fsys afero.Fs, pathA, pathB string) (bool, error) {
	infoA, err := fsys.Stat(pathA)
	if err != nil {
		return false, err
	}
	infoB, err := fsys.Stat(pathB)
	if err != nil {
		return false, err
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	a, err := fsys.Open(pathA)
	if err != nil {
		return false, err
	}
	defer a.Close()
	b, err := fsys.Open(pathB)
	if err != nil {
		return false, err
	}
	defer b.Close()

	ra, rb := newReaderWithContext(ctx, a), newReaderWithContext(ctx, b)
	bufA, bufB := make([]byte, ChunkSize), make([]byte, ChunkSize)
	for {
		nA, errA := io.ReadFull(ra, bufA)
		nB, errB := io.ReadFull(rb, bufB)
		if !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}
		doneA, err := chunkDone(errA)
		if err != nil {
			return false, err
		}
		doneB, err := chunkDone(errB)
		if err != nil {
			return false, err
		}
		if doneA || doneB {
			// the file may have grown or shrunk since Stat
			return doneA == doneB, nil
		}
	}
}

//chunkDone tells whether io.ReadFull reached the end of the file.
func chunkDone(err error) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true, nil
	default:
		return false, err
	}
}

//ReadDirSorted lists the directory entries ordered by name.
func ReadDirSorted(fsys afero.Fs, path string) ([]fs.FileInfo, error) {
	infos, err := afero.ReadDir(fsys, path)
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}
