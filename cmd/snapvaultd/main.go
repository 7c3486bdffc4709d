package main

import (
	"context"
	"log"
	"os"

	"snapvault/internal/config"
	"snapvault/internal/daemonrun"
)

// snapvaultd is the service-manager entry point. SNAPVAULT_CONFIG selects a
// config file; otherwise the default search path applies.
func main() {
	cfg, _, _, err := config.Load(os.Getenv("SNAPVAULT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("snapvaultd: %v", err)
	}
}
