package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wesm/mailquery/cmd/mailquery/cmd"
)

const (
	exitCodeError       = 1
	exitCodeInterrupted = 130 // 128 + SIGINT
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, progName(os.Args), os.Stderr, cmd.ExecuteContext)
	cancel()
	os.Exit(code)
}

// run executes the command tree and maps its outcome to an exit code.
// Errors are reported on stderr prefixed with the program name; an
// interrupt exits quietly.
func run(ctx context.Context, name string, stderr io.Writer, execute func(context.Context) error) int {
	err := execute(ctx)
	switch {
	case err == nil:
		return 0
	case isSignalCanceled(err, ctx):
		return exitCodeInterrupted
	default:
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitCodeError
	}
}

func progName(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "mailquery"
	}
	return filepath.Base(args[0])
}

func isSignalCanceled(err error, ctx context.Context) bool {
	return errors.Is(err, context.Canceled) && errors.Is(ctx.Err(), context.Canceled)
}
