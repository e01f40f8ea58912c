package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ritualhq/ritual/internal/backup"
	"github.com/ritualhq/ritual/internal/config"
	"github.com/ritualhq/ritual/internal/storage"
)

const (
	ExitCodeSuccess   = 0
	ExitCodeGeneric   = 1
	ExitCodeUsage     = 2
	ExitCodeNotFound  = 3
	ExitCodeConflict  = 4
	ExitCodeBadBackup = 5
	ExitCodeIO        = 6
	ExitCodeBadConfig = 7
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: ExitCodeUsage, Err: fmt.Errorf(format, args...)}
}

// mapCommandError assigns a process exit code from the error class.
func mapCommandError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrValidation):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, storage.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, storage.ErrReferential):
		return asExitError(ExitCodeConflict, err)
	case errors.Is(err, backup.ErrInvalidBackup):
		return asExitError(ExitCodeBadBackup, err)
	case errors.Is(err, config.ErrInvalidConfig):
		return asExitError(ExitCodeBadConfig, err)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return asExitError(ExitCodeIO, err)
	default:
		return asExitError(ExitCodeGeneric, err)
	}
}
