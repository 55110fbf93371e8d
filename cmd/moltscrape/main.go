package main

import (
	"context"
	"os"

	"moltbook-scraper/cmd/moltscrape/commands"
	"moltbook-scraper/lib/osutil"
	"moltbook-scraper/lib/telemetry"
)

func main() {
	err := telemetry.SetupFromEnv(context.Background(), "moltscrape")
	if err != nil && !os.IsNotExist(err) {
		osutil.Fatal("failed to setup telemetry", err)
	}
	telemetry.InitSlog(true)
	commands.ExecuteContext(osutil.SignalContext())
}
