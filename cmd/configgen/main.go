package main

import (
	"flag"
	"log"

	"github.com/danmuck/fwsettings/internal/config"
)

const defaultPath = "cmd/settingsd/config.toml"

func main() {
	kind := flag.String("kind", config.LinkSerial, "link kind: serial|tcp")
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadDaemonConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (link=%s settings=%d)", *input, cfg.Link.Kind, len(cfg.Settings))
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, *output)
}
