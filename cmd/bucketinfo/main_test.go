package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "bucketinfo.toml", `
mvt = "tile.pbf"
style = "style.json"
zoom = 12.5
dialect = "wgsl"
pragmas = true
`)

	cfg, err := parseConfig([]string{"-config", configPath, "-zoom", "14", "-v"})
	if err != nil {
		t.Fatalf("parseConfig() = %v", err)
	}
	want := Config{
		MVT:     "tile.pbf",
		Style:   "style.json",
		Zoom:    14,
		Dialect: "wgsl",
		Pragmas: true,
		Verbose: true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no style", []string{"-mvt", "a.pbf"}},
		{"no input", []string{"-style", "s.json"}},
		{"both inputs", []string{"-style", "s.json", "-mvt", "a.pbf", "-mbtiles", "a.mbtiles"}},
		{"bad dialect", []string{"-style", "s.json", "-mvt", "a.pbf", "-dialect", "hlsl"}},
		{"missing config", []string{"-config", "/nonexistent/bucketinfo.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseConfig(tt.args); err == nil {
				t.Errorf("parseConfig(%v) = nil error", tt.args)
			}
		})
	}
}

func TestParseTile(t *testing.T) {
	got, err := parseTile("14/8716/5688")
	if err != nil {
		t.Fatalf("parseTile() = %v", err)
	}
	if diff := cmp.Diff(maptile.New(8716, 5688, 14), got); diff != "" {
		t.Errorf("tile (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"", "1/2", "a/b/c", "2/4/0", "31/0/0"} {
		if _, err := parseTile(bad); err == nil {
			t.Errorf("parseTile(%q) = nil error", bad)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	well := geojson.NewFeature(orb.Point{100, 200})
	data, err := mvt.Marshal(mvt.Layers{
		&mvt.Layer{Name: "pois", Version: 2, Extent: 4096, Features: []*geojson.Feature{well}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	tilePath := filepath.Join(dir, "tile.pbf")
	if err := os.WriteFile(tilePath, data, 0o600); err != nil {
		t.Fatal(err)
	}
	stylePath := writeFile(t, dir, "style.json", `{
  "layers": [
    {"id": "pois-circle", "type": "circle", "source-layer": "pois", "paint": {"circle-radius": 5}},
    {"id": "pois-label", "type": "symbol", "source-layer": "pois"}
  ]
}`)

	cfg := defaultConfig()
	cfg.MVT = tilePath
	cfg.Style = stylePath
	cfg.Zoom = 14
	cfg.Upload = true
	cfg.Pragmas = true

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(cfg, &out, logger); err != nil {
		t.Fatalf("run() = %v", err)
	}

	var row []string
	for _, line := range strings.Split(out.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 8 && fields[0] == "pois-circle" {
			row = fields
		}
	}
	if row == nil {
		t.Fatalf("no chunk row for pois-circle in:\n%s", out.String())
	}
	// One circle: a single chunk of 4 vertices and 2 triangles.
	if diff := cmp.Diff([]string{"pois-circle", "circle", "1", "circle", "1", "4", "6"}, row[:7]); diff != "" {
		t.Errorf("chunk row (-want +got):\n%s", diff)
	}
	if row[7] == "0" {
		t.Error("uploaded bucket reports 0 GPU bytes")
	}
	if strings.Contains(out.String(), "pois-label") {
		t.Error("symbol layer must be skipped")
	}
	if !strings.Contains(out.String(), "#pragma") && !strings.Contains(out.String(), "// vertex") {
		t.Errorf("pragma tables missing from:\n%s", out.String())
	}
}

func TestRunEmptyStyle(t *testing.T) {
	dir := t.TempDir()
	data, err := mvt.Marshal(mvt.Layers{&mvt.Layer{Name: "pois", Version: 2, Extent: 4096}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	cfg := defaultConfig()
	cfg.MVT = filepath.Join(dir, "tile.pbf")
	if err := os.WriteFile(cfg.MVT, data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Style = writeFile(t, dir, "style.json", `{"layers": []}`)
	cfg.Zoom = 3

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(cfg, &out, logger); err != nil {
		t.Fatalf("run() = %v", err)
	}
	if !strings.Contains(out.String(), "LAYER") {
		t.Errorf("report header missing from:\n%s", out.String())
	}
}
