package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type pendingWrite struct {
	path    string
	tmp     string
	old     []byte
	existed bool
}

type pendingRemove struct {
	path string
	old  []byte
}

// fileTx groups file replacements. All new contents are written to
// temporary files first, commit renames them into place and restores the
// previous contents if a step fails.
type fileTx struct {
	store   *Store
	writes  []*pendingWrite
	removes []*pendingRemove
}

func (s *Store) begin() *fileTx {
	return &fileTx{store: s}
}

func (tx *fileTx) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var tmp string
	err := tx.store.retry(func() error {
		f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
		if err != nil {
			return err
		}
		tmp = f.Name()
		if _, err = f.Write(data); err == nil {
			err = f.Sync()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(tmp)
		}
		return err
	})
	if err != nil {
		return err
	}
	tx.writes = append(tx.writes, &pendingWrite{path: path, tmp: tmp})
	return nil
}

func (tx *fileTx) remove(path string) {
	tx.removes = append(tx.removes, &pendingRemove{path: path})
}

func (tx *fileTx) abort() {
	for _, w := range tx.writes {
		os.Remove(w.tmp)
	}
}

//nolint:cyclop // rollback handling
func (tx *fileTx) commit() error {
	applied := []*pendingWrite{}
	removed := []*pendingRemove{}
	rollback := func(cause error) error {
		var errs []error
		for i := len(removed) - 1; i >= 0; i-- {
			if err := os.WriteFile(removed[i].path, removed[i].old, 0o644); err != nil {
				errs = append(errs, err)
			}
		}
		for i := len(applied) - 1; i >= 0; i-- {
			w := applied[i]
			var err error
			if w.existed {
				err = os.WriteFile(w.path, w.old, 0o644)
			} else {
				err = os.Remove(w.path)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
		tx.abort()
		if len(errs) > 0 {
			return fmt.Errorf("%w (rollback incomplete: %w)", cause, errors.Join(errs...))
		}
		return cause
	}

	for _, w := range tx.writes {
		old, err := os.ReadFile(w.path)
		switch {
		case err == nil:
			w.old, w.existed = old, true
		case !errors.Is(err, os.ErrNotExist):
			return rollback(err)
		}
		if err := tx.store.retry(func() error { return os.Rename(w.tmp, w.path) }); err != nil {
			return rollback(err)
		}
		applied = append(applied, w)
	}
	for _, r := range tx.removes {
		old, err := os.ReadFile(r.path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return rollback(err)
		}
		r.old = old
		if err := tx.store.retry(func() error { return os.Remove(r.path) }); err != nil {
			return rollback(err)
		}
		removed = append(removed, r)
	}
	return nil
}
