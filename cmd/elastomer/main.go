// Command elastomer sends requests to a search server from the shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iRoxx/elastomer-client/client"
)

// Exit codes for the elastomer CLI.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitConfigError  = 3
	ExitNetworkError = 4
	ExitUsageError   = 64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}

	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var usage usageError

	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.Is(err, client.ErrInvalidArgument), errors.Is(err, client.ErrUnknownAdapter):
		return ExitConfigError
	case errors.Is(err, client.ErrTimeout):
		return ExitNetworkError
	case errors.Is(err, client.ErrResponse), errors.Is(err, errUnavailable):
		return ExitFailure
	default:
		return ExitNetworkError
	}
}
