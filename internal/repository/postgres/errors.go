package postgres

import (
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

// wrapErr annotates err and marks connection-level failures as transient.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		err = domain.Transient(err)
	} else if isUniqueViolation(err) {
		err = errors.WithMessage(domain.ErrConflict, err.Error())
	}
	return errors.Wrap(err, msg)
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01": // serialization failure, deadlock
			return true
		case pgErr.Code == "53300", strings.HasPrefix(pgErr.Code, "57P"): // too many connections, shutdown
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
