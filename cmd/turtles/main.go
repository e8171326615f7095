package main

import (
	"flag"
	"fmt"
	"os"
)

const defaultConfigPath = "turtles.yaml"

func main() {
	// Handle subcommands before flag parsing. "run" is the default.
	if len(os.Args) > 1 && os.Args[1] == "run" {
		os.Args = append(os.Args[:1], os.Args[2:]...)
	}
	if len(os.Args) > 1 && os.Args[1] == "init" {
		initCmd := flag.NewFlagSet("init", flag.ExitOnError)
		initCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: turtles init [flags]\n\nWrite a config file interactively.\n\nFlags:\n")
			initCmd.PrintDefaults()
		}
		output := initCmd.String("output", defaultConfigPath, "path of the config file to write")
		force := initCmd.Bool("force", false, "overwrite an existing config file")
		_ = initCmd.Parse(os.Args[2:])

		if err := runInit(*output, *force); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: turtles [flags]\n       turtles <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  run     Start the viewer and demo workers (default)\n  init    Write a config file interactively\n")
	}

	var opts runOptions
	flag.StringVar(&opts.configPath, "config", "", "path to configuration file (default: "+defaultConfigPath+" if present)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.IntVar(&opts.workers, "workers", -1, "number of demo workers (overrides config)")
	flag.Float64Var(&opts.fps, "fps", 0, "max tick rate (overrides config)")
	flag.StringVar(&opts.streamAddr, "stream", "", "serve frames over a websocket on this address (overrides config)")
	flag.StringVar(&opts.logFile, "log", "", "write logs to this file (overrides config)")
	flag.BoolVar(&opts.headless, "headless", false, "run without the terminal viewer")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := runWizard()
	if err != nil {
		return err
	}

	if err := writeConfig(path, data, force); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)

	return nil
}
