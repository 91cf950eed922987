package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/adapters/fs"
)

// watchStore renders once, then again on every change of the store file
// until the command context ends (main cancels it on interrupt).
func watchStore(cmd *cobra.Command, opts *rootOptions, location string, render func() error) error {
	if opts.cfg.Store.Backend != tally.BackendFile {
		return errors.New("--watch needs the file backend")
	}
	if err := render(); err != nil {
		return err
	}

	path := tally.ResolveStorePath(location, tally.IsDevRun())
	changes, err := fs.Watch(cmd.Context(), path, fs.DefaultDebounce, opts.logger)
	if err != nil {
		return err
	}

	for range changes {
		fmt.Fprintln(cmd.OutOrStdout())
		if err := render(); err != nil {
			opts.logger.Warn("render after change failed", "error", err)
		}
	}
	return nil
}
