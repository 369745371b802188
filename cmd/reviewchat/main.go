// Command reviewchat indexes product reviews and answers questions about
// them with a retrieval-augmented text generator.
//
// Usage:
//
//	reviewchat [--config reviewchat.yaml] [--env .env] [--seed products.json] <command> [flags]
//
// Commands:
//
//	index   [-f products.json]        index every product of a products file
//	ask     -p ID -q TEXT             answer one question
//	chat    -p ID [--session S]       interactive session reading questions from stdin
//	summary -p ID                     summarise a product's reviews
//	drop    -p ID                     delete a product's indexed documents
//	serve   [--addr :9090]            expose /metrics and /healthz
//	version                           print the build version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "reviewchat:", err)
		os.Exit(1)
	}
}

// run executes the command line in args and releases whatever the command
// opened, whether or not it succeeded.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stdout)

	err := root.ExecuteContext(ctx)
	if c.app != nil {
		c.app.Close(context.WithoutCancel(ctx))
	}
	return err
}
