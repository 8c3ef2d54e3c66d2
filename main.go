package main

import (
	"context"
	"os"
	"time"

	"github.com/shandysiswandi/totpguard/internal/app"
)

func main() {
	application := app.New()             // Load configuration and libraries
	code := application.Run(os.Args[1:]) // Run one command to completion

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	application.Stop(ctx) // Close resources gracefully
	cancel()

	os.Exit(code)
}
