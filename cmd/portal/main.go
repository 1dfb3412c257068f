// Package main is the entry point of the classroom portal ranking service.
//
//	portal serve            HTTP API, event-driven recompute and scheduled jobs
//	portal migrate up       apply pending database migrations
//	portal rankings compute one-off recompute printed to stdout
//	portal hash-password    bcrypt hash for ADMIN_PASSWORD_HASH
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}
