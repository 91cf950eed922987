package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/lifecycle"
)

func main() {
	// Interrupts cancel the context, so commands return and release their locks.
	ctx := lifecycle.NewSignalContext(context.Background())
	err := newRootCommand().ExecuteContext(ctx)
	ctx.Stop()
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
