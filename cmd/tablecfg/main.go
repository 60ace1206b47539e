package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/tablecfg/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, describeError(err))
		}
		stop()
		os.Exit(1)
	}
}

// describeError prefixes known failures with the operator message and code.
func describeError(err error) string {
	if !core.IsUserFacing(err) {
		return err.Error()
	}
	return fmt.Sprintf("%s\n  %v", core.FormatUserError(err), err)
}
