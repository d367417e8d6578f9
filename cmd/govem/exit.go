package main

import (
	"errors"
	"strings"

	"github.com/ZebulonRouseFrantzich/govem/internal/catalog"
	"github.com/ZebulonRouseFrantzich/govem/internal/install"
	"github.com/ZebulonRouseFrantzich/govem/internal/lock"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
)

// Exit codes.
const (
	exitOK               = 0
	exitFailure          = 1
	exitUsage            = 2
	exitCatalog          = 3
	exitAlreadyInstalled = 4
	exitNotInstalled     = 5
	exitCorrupt          = 6
	exitLocked           = 7
)

var (
	errUsage  = errors.New("usage")
	errConfig = errors.New("configuration error")
)

// usageError marks err as a command line mistake.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &wrappedUsage{err: err}
}

type wrappedUsage struct{ err error }

func (w *wrappedUsage) Error() string { return w.err.Error() }
func (w *wrappedUsage) Unwrap() []error {
	return []error{errUsage, w.err}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, store.ErrInvalidKey), isCobraUsage(err):
		return exitUsage
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return exitCatalog
	case errors.Is(err, store.ErrAlreadyInstalled):
		return exitAlreadyInstalled
	case errors.Is(err, store.ErrNotInstalled):
		return exitNotInstalled
	case errors.Is(err, install.ErrCorruptArchive):
		return exitCorrupt
	case errors.Is(err, lock.ErrLocked):
		return exitLocked
	}
	return exitFailure
}

// isCobraUsage recognizes the plain errors cobra returns for unknown
// commands, which bypass the flag error hook.
func isCobraUsage(err error) bool {
	return strings.HasPrefix(err.Error(), "unknown command ")
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return "Check your connection or the mirror setting, then run 'govem update'."
	case errors.Is(err, catalog.ErrReleaseNotFound):
		return "Run 'govem list-remote' to see available versions."
	case errors.Is(err, store.ErrAlreadyInstalled):
		return "Remove it first with 'govem remove', or pick another name with --name."
	case errors.Is(err, store.ErrNotInstalled):
		return "Run 'govem list' to see installed versions."
	case errors.Is(err, lock.ErrLocked):
		return "Another govem command is working on the same version; try again when it finishes."
	}
	return ""
}
