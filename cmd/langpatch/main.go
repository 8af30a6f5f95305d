package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/layout"
	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
	"github.com/conn-castle/langpatch/internal/record"
)

var executeFunc = execute

// Version, Commit, and BuildDate are overridden at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitLayout       = 2
	exitLanguageCode = 3
	exitRecord       = 4
	exitFetch        = 5
)

func main() {
	runMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

// execute runs the CLI with the provided args and output writers. An interrupt cancels
// the command's context; a second one terminates the process.
func execute(args []string, stdout io.Writer, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	cmd := newRootCmd()
	cmd.Version = versionString()
	cmd.SetVersionTemplate(messages.VersionTemplate)
	if len(args) > 1 {
		cmd.SetArgs(args[1:])
	} else {
		cmd.SetArgs([]string{})
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// runMain executes the CLI and exits with the code matching the error.
func runMain(args []string, stdout io.Writer, stderr io.Writer, exit func(int)) {
	err := executeFunc(args, stdout, stderr)
	if err == nil {
		return
	}
	_, _ = fmt.Fprintln(stderr, err)
	exit(exitCode(err))
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, layout.ErrPathNotFound), errors.Is(err, layout.ErrInvalidLayout):
		return exitLayout
	case errors.Is(err, lang.ErrInvalidLanguageCode):
		return exitLanguageCode
	case errors.Is(err, record.ErrRecordCorrupt):
		return exitRecord
	case errors.Is(err, manifest.ErrFetch), errors.Is(err, reconcile.ErrChecksumMismatch):
		return exitFetch
	}
	return exitFailure
}

// versionString formats Version with optional commit and build date metadata.
func versionString() string {
	meta := []string{}
	if Commit != "" && Commit != "unknown" {
		meta = append(meta, fmt.Sprintf(messages.VersionCommitFmt, Commit))
	}
	if BuildDate != "" && BuildDate != "unknown" {
		meta = append(meta, fmt.Sprintf(messages.VersionBuildFmt, BuildDate))
	}
	if len(meta) == 0 {
		return Version
	}
	return fmt.Sprintf(messages.VersionFullFmt, Version, strings.Join(meta, ", "))
}
