package main

import (
	"context"
	"fmt"
	"os"

	"moneymanager/internal/cli"
)

func main() {
	ctx, cancel := cli.GracefulShutdown(context.Background(), nil)
	defer cancel()

	if err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
