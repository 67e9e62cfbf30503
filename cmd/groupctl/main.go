// Command groupctl runs the user group pipeline without the web server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/usergroups/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err) + "\n  " + err.Error()
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		stop()
		os.Exit(1)
	}
}
