// FilePath: cmd/gateway/main.go
package main

import (
	"log"
	"os"

	"github.com/spf13/pflag"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/console"
	"github.com/eval-printer/SmartHome-Demo/internal/server"
)

func main() {
	console.ClearConsole()
	nuts.InitVersion()
	console.DrawLogo("gateway")
	nuts.L.Infof("[Main] Starting SmartHome gateway v%s", nuts.GetVersion())

	if err := config.BindFlags(pflag.CommandLine); err != nil {
		log.Fatalf("Failed to bind flags: %v", err)
	}
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Device.Kind != "" {
		log.Fatalf("The gateway does not run device programs, use the device command for --kind %s", cfg.Device.Kind)
	}

	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}
