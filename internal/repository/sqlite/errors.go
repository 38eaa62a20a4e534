package sqlite

import (
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

// wrapErr annotates err and classifies lock contention and I/O failures as
// transient.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCantOpen:
			err = domain.Transient(err)
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				err = errors.WithMessage(domain.ErrConflict, err.Error())
			}
		}
	}
	return errors.Wrap(err, msg)
}
