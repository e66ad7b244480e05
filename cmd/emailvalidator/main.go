// Command emailvalidator validates email addresses from files, the
// command line or an HTTP upload service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/optimode/emailvalidator/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "emailvalidator: %s\n", exitErr.Message)
			cancel()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "emailvalidator: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
