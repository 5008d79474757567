package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jparks/lexledger/internal/app"
	"github.com/jparks/lexledger/internal/cli"
)

func main() {
	// If the user asked for help, avoid initializing the full app (which may prompt)
	skipInit := false
	for _, a := range os.Args[1:] {
		if a == "-h" || a == "--help" || a == "help" {
			skipInit = true
			break
		}
	}

	if !skipInit {
		ctx := context.Background()
		a, err := app.New(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()
		cli.SetApp(a)

		// Surface a session left over from a crash or unfinished run
		if timer, err := a.RecoverTimer(ctx); err == nil && timer != nil {
			fmt.Fprintf(os.Stderr, "Note: a timer started %s is still %s. Use 'lexledger timer status'.\n",
				timer.StartTime.Format("2006-01-02 15:04"), timer.State())
		}
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
