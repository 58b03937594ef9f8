package tile

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func testLayers() mvt.Layers {
	point := geojson.NewFeature(orb.Point{100, 200})
	point.Properties["kind"] = "well"
	line := geojson.NewFeature(orb.LineString{{0, 0}, {4096, 2048}})
	return mvt.Layers{
		&mvt.Layer{Name: "pois", Version: 2, Extent: 4096, Features: []*geojson.Feature{point}},
		&mvt.Layer{Name: "roads", Version: 2, Extent: 4096, Features: []*geojson.Feature{line}},
	}
}

func TestDecodeRescales(t *testing.T) {
	data, err := mvt.Marshal(testLayers())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	tl, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if len(tl.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(tl.Layers))
	}

	pois := tl.Layer("pois")
	if pois == nil || pois.Extent != 4096 || len(pois.Features) != 1 {
		t.Fatalf("pois = %+v", pois)
	}
	if diff := cmp.Diff(orb.Point{200, 400}, pois.Features[0].Geometry); diff != "" {
		t.Errorf("point (-want +got):\n%s", diff)
	}
	if got := pois.Features[0].Properties["kind"]; got != "well" {
		t.Errorf("kind = %v, want well", got)
	}

	roads := tl.Features("roads")
	if diff := cmp.Diff(orb.LineString{{0, 0}, {8192, 4096}}, roads[0].Geometry); diff != "" {
		t.Errorf("line (-want +got):\n%s", diff)
	}
	if tl.Features("missing") != nil {
		t.Error("Features(missing) must be nil")
	}
}

func TestDecodeGzipped(t *testing.T) {
	data, err := mvt.MarshalGzipped(testLayers())
	if err != nil {
		t.Fatalf("MarshalGzipped: %v", err)
	}
	tl, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if len(tl.Features("roads")) != 1 {
		t.Errorf("roads = %d features, want 1", len(tl.Features("roads")))
	}
}

func TestDecodeErrors(t *testing.T) {
	tl, err := Decode(nil)
	if err != nil || len(tl.Layers) != 0 {
		t.Errorf("Decode(nil) = %v, %v, want empty tile", tl, err)
	}
	if _, err := Decode([]byte{0x1f, 0x8b, 0, 1, 2}); !errors.Is(err, ErrDecode) {
		t.Errorf("Decode(bad gzip) = %v, want ErrDecode", err)
	}
}

func TestMBTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mbtiles")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, stmt := range []string{
		"CREATE TABLE metadata (name TEXT, value TEXT)",
		"CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)",
		"INSERT INTO metadata VALUES ('format', 'pbf')",
		// XYZ tile 3/2/1 is TMS row 6.
		"INSERT INTO tiles VALUES (3, 2, 6, x'0102')",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	db.Close()

	r, err := OpenMBTiles(path)
	if err != nil {
		t.Fatalf("OpenMBTiles() = %v", err)
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil || meta["format"] != "pbf" {
		t.Errorf("Metadata() = %v, %v", meta, err)
	}
	data, err := r.ReadTile(maptile.New(2, 1, 3))
	if err != nil {
		t.Fatalf("ReadTile() = %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2}, data); diff != "" {
		t.Errorf("tile data (-want +got):\n%s", diff)
	}
	if data, err := r.ReadTile(maptile.New(0, 0, 3)); err != nil || data != nil {
		t.Errorf("missing tile = %v, %v, want nil, nil", data, err)
	}

	n, err := r.CountTiles()
	if err != nil || n != 1 {
		t.Errorf("CountTiles() = %d, %v, want 1", n, err)
	}
	var visited []maptile.Tile
	err = r.VisitTiles(func(tl maptile.Tile, _ []byte) error {
		visited = append(visited, tl)
		return nil
	})
	if err != nil {
		t.Fatalf("VisitTiles() = %v", err)
	}
	if diff := cmp.Diff([]maptile.Tile{maptile.New(2, 1, 3)}, visited); diff != "" {
		t.Errorf("visited (-want +got):\n%s", diff)
	}
}
