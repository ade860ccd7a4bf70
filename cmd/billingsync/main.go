package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrymomot/billingsync/internal/cmd"
)

var version = "dev"

func main() {
	if err := cmd.NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "billingsync:", err)
		os.Exit(1)
	}
}
