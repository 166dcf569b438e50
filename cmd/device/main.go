// FilePath: cmd/device/main.go
package main

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/pflag"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/console"
	"github.com/eval-printer/SmartHome-Demo/internal/devices"
	"github.com/eval-printer/SmartHome-Demo/internal/server"
)

func main() {
	console.ClearConsole()
	nuts.InitVersion()

	if err := config.BindFlags(pflag.CommandLine); err != nil {
		log.Fatalf("Failed to bind flags: %v", err)
	}
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Device.Kind == "" {
		log.Fatalf("A device kind is required: --kind %s", strings.Join(devices.Kinds(), "|"))
	}
	if cfg.Transport.Mode == config.TransportLoopback {
		log.Fatalf("A standalone device needs the rest transport")
	}

	console.DrawLogo(cfg.Device.Kind)
	nuts.L.Infof("[Main] Starting SmartHome %s device v%s", cfg.Device.Kind, nuts.GetVersion())

	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}
