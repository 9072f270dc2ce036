package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"demprep/internal/config"
	"demprep/internal/fsutil"
	"demprep/internal/manifest"
	"demprep/pkg/demprep"
)

const usage = `usage: demprep <command> [flags] [input...]

commands:
  tile     slice input DEMs into tiles (default: the config's input)
  masks    build the mask and weight catalog
  lookup   write the tile/mask/weight lookup table
  trim     trim the lookup table to a multiple of the batch size
  all      tile, masks, lookup and trim in sequence

flags:
`

var stdout io.Writer = os.Stdout

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	inputs     []string
	batch      int
	workers    int
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New(usage)
	}
	command := args[0]

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var opts options
	input := fs.String("input", "", "input DEM path")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.IntVar(&opts.batch, "batch", 0, "batch size (overrides config)")
	fs.IntVar(&opts.workers, "workers", 0, "mask catalog workers (overrides config)")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	if *input != "" {
		opts.inputs = append(opts.inputs, *input)
	}
	opts.inputs = append(opts.inputs, fs.Args()...)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if len(opts.inputs) == 0 && cfg.Input != "" {
		opts.inputs = []string{cfg.Input}
	}
	setupLogging(cfg)

	p := &pipeline{cfg: cfg, fsys: fsutil.OSFileSystem{}, inputs: opts.inputs}
	if cfg.ManifestPath != "" {
		store, err := manifest.Open(cfg.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()
		p.store = store
	}

	switch command {
	case "tile":
		return p.tile()
	case "masks":
		return p.masks()
	case "lookup":
		return p.lookup()
	case "trim":
		return p.trim()
	case "all":
		for _, stage := range []func() error{p.tile, p.masks, p.lookup, p.trim} {
			if err := stage(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case opts.configPath != "":
		c, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	case (fsutil.OSFileSystem{}).Exists(config.DefaultConfigPath):
		c, err := config.Load(config.DefaultConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		cfg = config.Default()
	}

	if opts.batch != 0 {
		cfg.BatchSize = opts.batch
	}
	if opts.workers != 0 {
		cfg.Workers = opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.HumanLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	demprep.SetLogger(&log.Logger)
}
