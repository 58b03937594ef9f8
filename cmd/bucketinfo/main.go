// Command bucketinfo builds the buckets of one vector tile against a style
// and reports their chunks, attribute strategies and shader pragmas.
//
// Usage:
//
//	bucketinfo -mbtiles planet.mbtiles -tile 14/8716/5688 -style style.json
//	bucketinfo -mvt tile.pbf -style style.yaml -zoom 14.5 -pragmas -dialect wgsl
//	bucketinfo -config bucketinfo.toml -v
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/bucket"
	"github.com/gogpu/bucket/internal/parallel"
	"github.com/gogpu/bucket/shader"
	"github.com/gogpu/bucket/style"
	"github.com/gogpu/bucket/tile"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "bucketinfo:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	bucket.SetLogger(logger)

	if err := run(cfg, os.Stdout, logger); err != nil {
		logger.Error("bucketinfo failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, out io.Writer, logger *slog.Logger) error {
	layers, err := loadStyle(cfg.Style)
	if err != nil {
		return err
	}
	t, tl, err := loadTile(cfg)
	if err != nil {
		return err
	}
	zoom := cfg.Zoom
	if zoom < 0 {
		zoom = float64(t.Z)
	}

	opts, closeCache, err := bucketOptions(cfg, t)
	if err != nil {
		return err
	}
	defer closeCache()

	var device hal.Device
	var queue hal.Queue
	if cfg.Upload {
		d, q, cleanup, err := openNoopDevice()
		if err != nil {
			return err
		}
		defer cleanup()
		device, queue = d, q
	}

	groups := style.Group(layers)
	bar := progressbar.NewOptions(len(groups),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("building buckets"),
		progressbar.OptionSetVisibility(len(groups) > 0),
	)
	pool := parallel.New(cfg.Workers)
	defer pool.Close()

	built := make([]*report, len(groups))
	tasks := make([]func() error, len(groups))
	for i, group := range groups {
		tasks[i] = func() error {
			defer func() {
				if err := bar.Add(1); err != nil {
					logger.Debug("progress", "err", err)
				}
			}()
			r, err := buildGroup(group, tl, zoom, opts, logger)
			built[i] = r
			return err
		}
	}
	if err := pool.Run(tasks); err != nil {
		return err
	}
	if err := bar.Finish(); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	if len(groups) > 0 {
		fmt.Fprintln(os.Stderr)
	}

	var reports []report
	for i, r := range built {
		if r == nil {
			continue
		}
		if device != nil {
			if err := r.realize(groups[i], device, queue, opts); err != nil {
				return err
			}
		}
		reports = append(reports, *r)
	}

	return printReports(out, t, zoom, reports, cfg)
}

func loadStyle(path string) ([]*style.Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return style.ParseYAML(data)
	default:
		return style.ParseJSON(data)
	}
}

func loadTile(cfg Config) (maptile.Tile, *tile.Tile, error) {
	var t maptile.Tile
	if cfg.Tile != "" {
		var err error
		if t, err = parseTile(cfg.Tile); err != nil {
			return t, nil, err
		}
	}

	var data []byte
	if cfg.MVT != "" {
		var err error
		if data, err = os.ReadFile(cfg.MVT); err != nil {
			return t, nil, err
		}
	} else {
		if cfg.Tile == "" {
			return t, nil, errors.New("-mbtiles needs -tile")
		}
		r, err := tile.OpenMBTiles(cfg.MBTiles)
		if err != nil {
			return t, nil, err
		}
		defer r.Close()
		if data, err = r.ReadTile(t); err != nil {
			return t, nil, err
		}
		if data == nil {
			return t, nil, fmt.Errorf("tile %s not found in %s", cfg.Tile, cfg.MBTiles)
		}
	}

	tl, err := tile.Decode(data)
	return t, tl, err
}

func bucketOptions(cfg Config, t maptile.Tile) ([]bucket.Option, func(), error) {
	d, err := cfg.dialect()
	if err != nil {
		return nil, nil, err
	}
	opts := []bucket.Option{bucket.WithDialect(d)}
	if cfg.Tile != "" {
		opts = append(opts, bucket.WithTile(t))
	}
	if !cfg.Validate {
		return opts, func() {}, nil
	}
	cache, err := shader.NewCache(1 << 24)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, bucket.WithShaderValidation(cache))
	return opts, cache.Close, nil
}

type kindReport struct {
	kind     string
	chunks   []int
	elements int
	gpuBytes int
}

type layerReport struct {
	id         string
	kind       string
	strategies map[string]string
	pragmas    shader.Table
}

type report struct {
	baseID   string
	typ      string
	features int
	kinds    []kindReport
	layers   []layerReport
	built    *bucket.Bucket
}

// buildGroup builds one bucket. Groups outside the zoom range or of an
// unregistered type yield no report.
func buildGroup(group []*style.Layer, tl *tile.Tile, zoom float64, opts []bucket.Option, logger *slog.Logger) (*report, error) {
	base := group[0]
	minZoom, maxZoom := base.ZoomRange()
	if zoom < minZoom || zoom >= maxZoom {
		logger.Debug("layer hidden at zoom", "layer", base.ID(), "zoom", zoom)
		return nil, nil
	}
	if _, err := bucket.Lookup(base.Type()); err != nil {
		logger.Debug("no bucket for layer type", "layer", base.ID(), "type", base.Type())
		return nil, nil
	}

	features := tl.Features(base.SourceLayer())
	b, err := bucket.New(base.Type(), style.Children(group), features, zoom, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Build(); err != nil {
		return nil, fmt.Errorf("layer %s: %w", base.ID(), err)
	}

	r := &report{baseID: base.ID(), typ: b.Type(), features: len(features)}
	for _, kind := range b.Kinds() {
		kr := kindReport{kind: kind}
		for _, g := range b.Groups(kind) {
			kr.chunks = append(kr.chunks, g.Len())
			kr.elements += b.ElementCount(kind, g)
		}
		r.kinds = append(r.kinds, kr)

		for _, l := range b.Layers() {
			la := b.Attributes(kind, l.ID())
			if la == nil {
				continue
			}
			lr := layerReport{id: l.ID(), kind: kind, strategies: make(map[string]string), pragmas: la.Pragmas}
			for name, s := range la.Strategies {
				lr.strategies[name] = s.String()
			}
			r.layers = append(r.layers, lr)
		}
	}
	r.built = b
	return r, nil
}

// realize moves the built arrays through a serialize/deserialize round trip
// and uploads the result, recording the buffer size of every kind.
func (r *report) realize(group []*style.Layer, device hal.Device, queue hal.Queue, opts []bucket.Option) error {
	s := r.built.Serialize()
	b, err := bucket.Deserialize(s, style.Children(group), opts...)
	if err != nil {
		return fmt.Errorf("layer %s: %w", r.baseID, err)
	}
	if b.IsEmpty() {
		return nil
	}
	if err := b.Upload(device, queue); err != nil {
		return fmt.Errorf("layer %s: %w", r.baseID, err)
	}
	for i := range r.kinds {
		for _, bg := range b.Buffers(r.kinds[i].kind) {
			r.kinds[i].gpuBytes += bg.Bytes()
		}
	}
	return b.Destroy()
}

func openNoopDevice() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, errors.New("noop backend has no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, err
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}

func printReports(out io.Writer, t maptile.Tile, zoom float64, reports []report, cfg Config) error {
	if cfg.Tile != "" {
		fmt.Fprintf(out, "tile %d/%d/%d at zoom %g\n\n", t.Z, t.X, t.Y, zoom)
	} else {
		fmt.Fprintf(out, "tile at zoom %g\n\n", zoom)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tTYPE\tFEATURES\tKIND\tCHUNKS\tVERTICES\tELEMENTS\tGPU BYTES")
	for _, r := range reports {
		for _, kr := range r.kinds {
			vertices := 0
			for _, n := range kr.chunks {
				vertices += n
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
				r.baseID, r.typ, r.features, kr.kind, len(kr.chunks), vertices, kr.elements, kr.gpuBytes)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tKIND\tINPUT\tSTRATEGY")
	for _, r := range reports {
		for _, lr := range r.layers {
			names := make([]string, 0, len(lr.strategies))
			for name := range lr.strategies {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", lr.id, lr.kind, name, lr.strategies[name])
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !cfg.Pragmas {
		return nil
	}
	for _, r := range reports {
		for _, lr := range r.layers {
			fmt.Fprintf(out, "\n# %s (%s, %s)\n", lr.id, lr.kind, cfg.Dialect)
			printPragmas(out, shader.Vertex, lr.pragmas.Vertex)
			printPragmas(out, shader.Fragment, lr.pragmas.Fragment)
		}
	}
	return nil
}

func printPragmas(out io.Writer, stage shader.Stage, p shader.Pragmas) {
	for _, k := range p.Keys() {
		fmt.Fprintf(out, "// %s %s\n%s\n", stage, k, p[k])
	}
}
