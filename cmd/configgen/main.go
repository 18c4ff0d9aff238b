package main

import (
	"flag"
	"log"

	"github.com/danmuck/marsipan/internal/config"
)

func main() {
	kind := flag.String("kind", "bridge", "config kind: bridge|env")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing bridge config file")
	input := flag.String("input", "cmd/marsipan/config.toml", "config path for validation")
	envFile := flag.String("env", ".env", "dotenv file applied before validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if *kind != "bridge" {
			log.Fatalf("only bridge configs can be validated, got %s", *kind)
		}
		if err := config.LoadDotEnv(*envFile); err != nil {
			log.Fatal(err)
		}
		cfg, err := config.LoadBridgeConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated bridge config at %s (user=%s rooms=%d)", *input, cfg.Username, len(cfg.Rooms))
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "bridge":
			target = "cmd/marsipan/config.toml"
		case "env":
			target = ".env"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
