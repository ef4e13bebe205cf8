package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/fwsettings/internal/daemon"
	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/observability"
	"github.com/danmuck/fwsettings/internal/transport"
)

func main() {
	path := flag.String("config", defaultConfigPath, "daemon config path")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := transport.SerialPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "settingsd: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "settingsd: %v\n", err)
		os.Exit(1)
	}
	logs.ConfigureWith(loggingConfig(cfg))
	observability.RegisterMetrics()

	svc := daemon.NewService(cfg, daemon.WithRequestLogger(observability.InitLogger(cfg.ID)))
	if err := svc.Run(); err != nil {
		logs.Errf("settingsd.main exit err=%v", err)
		os.Exit(1)
	}
}
