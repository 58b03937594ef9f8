package tile

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// MBTiles reads tiles from an MBTiles file.
//
// Note: the caller must register a sqlite3 database/sql driver (e.g. import
// _ "github.com/mattn/go-sqlite3") before opening a file.
type MBTiles struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// OpenMBTiles opens an MBTiles file read-only. The returned reader must be
// closed after use.
func OpenMBTiles(path string) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MBTiles{db: db, stmt: stmt}, nil
}

// Close releases the database.
func (r *MBTiles) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

// Metadata returns the name/value pairs of the metadata table.
func (r *MBTiles) Metadata() (map[string]string, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}
	return metadata, rows.Err()
}

// ReadTile returns the raw data of an XYZ tile, or nil when the file has
// no such tile.
func (r *MBTiles) ReadTile(t maptile.Tile) ([]byte, error) {
	var data []byte
	err := r.stmt.QueryRow(uint32(t.Z), t.X, flipY(t)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return data, err
}

// VisitTiles calls visit for every tile of the file, in storage order.
func (r *MBTiles) VisitTiles(visit func(maptile.Tile, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z uint32
		var data []byte
		if err := rows.Scan(&z, &x, &y, &data); err != nil {
			return err
		}
		t := maptile.New(x, y, maptile.Zoom(z))
		t.Y = flipY(t)
		if err := visit(t, data); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountTiles returns the number of tiles in the file.
func (r *MBTiles) CountTiles() (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n)
	return n, err
}

// flipY converts between XYZ and TMS rows; the conversion is its own
// inverse.
func flipY(t maptile.Tile) uint32 {
	return (1 << uint32(t.Z)) - 1 - t.Y
}
