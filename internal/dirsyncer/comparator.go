package dirsyncer

import (
	"context"
	"fmt"

	"mirrorsync/pkg/helpers/iout"

	"github.com/spf13/afero"
)

//Comparator decides whether two same-named files are identical.
//Only the contents matter, modification times are ignored.
type Comparator struct {
	fs afero.Fs
}

func NewComparator(fsys afero.Fs) *Comparator {
	return &Comparator{fs: fsys}
}

func (c *Comparator) Identical(ctx context.Context, pathA, pathB string) (bool, error) {
	same, err := iout.SameContents(ctx, c.fs, pathA, pathB)
	if err != nil {
		return false, fmt.Errorf("%w %q and %q: %w", ErrComparison, pathA, pathB, err)
	}
	return same, nil
}
