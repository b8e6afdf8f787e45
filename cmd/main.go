package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yungbote/identity-backend/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, cli.ErrViolations) {
			fmt.Fprintf(os.Stderr, "identity: %v\n", err)
		}
		os.Exit(1)
	}
}
