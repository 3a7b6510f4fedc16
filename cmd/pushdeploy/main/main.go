package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/pushdeploy/cmd/pushdeploy"
	"github.com/arthur-debert/pushdeploy/pkg/deploy"
	"github.com/arthur-debert/pushdeploy/pkg/style"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := pushdeploy.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		msg := fmt.Sprintf("Error: %v", err)
		if step := deploy.StepOf(err); step != "" {
			msg = fmt.Sprintf("Error: deployment stopped at %s: %v", step, err)
		}
		fmt.Fprintln(os.Stderr, style.ErrorStyle.Render(msg))
		os.Exit(1)
	}
}
