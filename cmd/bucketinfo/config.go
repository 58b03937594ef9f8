package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/bucket/shader"
)

// Config holds the bucketinfo settings. Values come from an optional TOML
// file and are overridden by command-line flags.
type Config struct {
	MBTiles  string  `toml:"mbtiles"`
	MVT      string  `toml:"mvt"`
	Tile     string  `toml:"tile"`
	Style    string  `toml:"style"`
	Zoom     float64 `toml:"zoom"`
	Dialect  string  `toml:"dialect"`
	Validate bool    `toml:"validate"`
	Pragmas  bool    `toml:"pragmas"`
	Upload   bool    `toml:"upload"`
	Verbose  bool    `toml:"verbose"`
	Workers  int     `toml:"workers"`
}

func defaultConfig() Config {
	return Config{Zoom: -1, Dialect: "glsl"}
}

// parseConfig parses args, loading the -config file first when given so
// that flags take precedence over it.
func parseConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	fs := flag.NewFlagSet("bucketinfo", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML config file")
	fs.StringVar(&cfg.MBTiles, "mbtiles", cfg.MBTiles, "input mbtiles file path")
	fs.StringVar(&cfg.MVT, "mvt", cfg.MVT, "input raw vector tile path (alternative to -mbtiles)")
	fs.StringVar(&cfg.Tile, "tile", cfg.Tile, "tile to read as z/x/y")
	fs.StringVar(&cfg.Style, "style", cfg.Style, "style document (.json, .yaml or .yml)")
	fs.Float64Var(&cfg.Zoom, "zoom", cfg.Zoom, "bucket zoom (default: the tile zoom)")
	fs.StringVar(&cfg.Dialect, "dialect", cfg.Dialect, "pragma dialect: glsl or wgsl")
	fs.BoolVar(&cfg.Validate, "validate", cfg.Validate, "validate every pragma table")
	fs.BoolVar(&cfg.Pragmas, "pragmas", cfg.Pragmas, "print pragma tables")
	fs.BoolVar(&cfg.Upload, "upload", cfg.Upload, "realize buckets on a noop GPU device and report buffer sizes")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "debug logging")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel bucket builds (default: GOMAXPROCS)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", *configPath, err)
		}
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}

	if cfg.Style == "" {
		return cfg, fmt.Errorf("missing -style")
	}
	if (cfg.MBTiles == "") == (cfg.MVT == "") {
		return cfg, fmt.Errorf("exactly one of -mbtiles and -mvt is required")
	}
	if _, err := cfg.dialect(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) dialect() (shader.Dialect, error) {
	switch strings.ToLower(c.Dialect) {
	case "glsl", "":
		return shader.GLSL{}, nil
	case "wgsl":
		return shader.WGSL{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", c.Dialect)
	}
}

// parseTile parses a z/x/y tile address.
func parseTile(s string) (maptile.Tile, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return maptile.Tile{}, fmt.Errorf("tile %q: want z/x/y", s)
	}
	var v [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return maptile.Tile{}, fmt.Errorf("tile %q: %w", s, err)
		}
		v[i] = uint32(n)
	}
	z, x, y := v[0], v[1], v[2]
	if z > 30 || x >= 1<<z || y >= 1<<z {
		return maptile.Tile{}, fmt.Errorf("tile %q: out of range", s)
	}
	return maptile.New(x, y, maptile.Zoom(z)), nil
}
