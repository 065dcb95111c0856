// Command collector runs the analytics collector and bulletin watcher.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vmsite/collector/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
