package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bft-labs/tracejack/internal/domain"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const indexFile = "index.sqlite"

const schema = `
	CREATE TABLE IF NOT EXISTS files (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		path   TEXT    NOT NULL UNIQUE,
		format TEXT    NOT NULL,
		mtime  INTEGER NOT NULL,
		size   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS traces (
		file_id  INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		seq      INTEGER NOT NULL,
		network  TEXT    NOT NULL,
		station  TEXT    NOT NULL,
		location TEXT    NOT NULL,
		channel  TEXT    NOT NULL,
		tmin     REAL    NOT NULL,
		tlast    REAL    NOT NULL,
		deltat   REAL    NOT NULL,
		nsamples INTEGER NOT NULL,
		PRIMARY KEY (file_id, seq)
	);

	CREATE INDEX IF NOT EXISTS traces_time ON traces(tmin, tlast);
	CREATE INDEX IF NOT EXISTS traces_codes ON traces(network, station, location, channel);
`

// selection holds the traces of the current run: files given on the command
// line that pass the NSLC filter. It lives in the temp schema so a shared
// on-disk index is not affected.
const selectionSchema = `
	CREATE TEMP TABLE IF NOT EXISTS selection (
		file_id INTEGER NOT NULL,
		seq     INTEGER NOT NULL,
		PRIMARY KEY (file_id, seq)
	);
	DELETE FROM temp.selection;
`

// index is the sqlite trace catalog of an archive.
type index struct {
	db *sql.DB
}

// openIndex opens the index database. An empty dir keeps it in memory.
func openIndex(ctx context.Context, dir string) (*index, error) {
	dsn := ":memory:"
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		dsn = filepath.Join(dir, indexFile)
	}

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// temp tables and in-memory databases are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if dir != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("index pragma %q: %w", p, err)
		}
	}
	for _, stmt := range []string{schema, selectionSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("index schema: %w", err)
		}
	}
	return &index{db: db}, nil
}

func (ix *index) close() error {
	return ix.db.Close()
}

// lookup returns the id of an up to date entry for f, or 0.
func (ix *index) lookup(ctx context.Context, f inputFile) (int64, error) {
	var (
		id          int64
		mtime, size int64
		format      string
	)
	err := ix.db.QueryRowContext(ctx,
		`SELECT id, mtime, size, format FROM files WHERE path = ?`, f.path,
	).Scan(&id, &mtime, &size, &format)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", f.path, err)
	}
	if mtime != f.mtime || size != f.size || format != f.format.String() {
		return 0, nil
	}
	return id, nil
}

// store replaces the entry of f with the given traces.
func (ix *index) store(ctx context.Context, f inputFile, traces []*domain.Trace) (int64, error) {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", f.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, f.path); err != nil {
		return 0, fmt.Errorf("index %s: %w", f.path, err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (path, format, mtime, size) VALUES (?, ?, ?, ?)`,
		f.path, f.format.String(), f.mtime, f.size)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", f.path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", f.path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traces (file_id, seq, network, station, location, channel, tmin, tlast, deltat, nsamples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", f.path, err)
	}
	defer stmt.Close()
	for seq, tr := range traces {
		if tr.Len() == 0 {
			continue
		}
		c := tr.Codes
		if _, err := stmt.ExecContext(ctx, id, seq, c.Network, c.Station, c.Location, c.Channel,
			tr.Tmin, tr.Tmax(), tr.Deltat, tr.Len()); err != nil {
			return 0, fmt.Errorf("index %s trace %d: %w", f.path, seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index %s: %w", f.path, err)
	}
	return id, nil
}

type traceRow struct {
	fileID int64
	seq    int
	codes  domain.Codes
}

// rowsOf returns the indexed traces of a file.
func (ix *index) rowsOf(ctx context.Context, fileID int64) ([]traceRow, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT seq, network, station, location, channel FROM traces WHERE file_id = ? ORDER BY seq`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []traceRow
	for rows.Next() {
		r := traceRow{fileID: fileID}
		c := &r.codes
		if err := rows.Scan(&r.seq, &c.Network, &c.Station, &c.Location, &c.Channel); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ix *index) selectRows(ctx context.Context, rows []traceRow) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO temp.selection (file_id, seq) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.fileID, r.seq); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const selected = `traces t JOIN temp.selection s ON s.file_id = t.file_id AND s.seq = t.seq`

func (ix *index) stats(ctx context.Context) (earliest, end, minDeltat float64, n int, err error) {
	var (
		tmin, tend, dt sql.NullFloat64
	)
	err = ix.db.QueryRowContext(ctx,
		`SELECT MIN(t.tmin), MAX(t.tlast + t.deltat), MIN(t.deltat), COUNT(*) FROM `+selected,
	).Scan(&tmin, &tend, &dt, &n)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("index stats: %w", err)
	}
	return tmin.Float64, tend.Float64, dt.Float64, n, nil
}

func (ix *index) count(ctx context.Context, tmin, tmax float64) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+selected+` WHERE t.tmin < ? AND t.tlast >= ?`, tmax, tmin,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("index count: %w", err)
	}
	return n, nil
}

// codes returns the distinct codes overlapping [tmin, tmax) in code order.
func (ix *index) codes(ctx context.Context, tmin, tmax float64) ([]domain.Codes, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT DISTINCT t.network, t.station, t.location, t.channel FROM `+selected+`
		WHERE t.tmin < ? AND t.tlast >= ?
		ORDER BY t.network, t.station, t.location, t.channel`, tmax, tmin)
	if err != nil {
		return nil, fmt.Errorf("index codes: %w", err)
	}
	defer rows.Close()

	var out []domain.Codes
	for rows.Next() {
		var c domain.Codes
		if err := rows.Scan(&c.Network, &c.Station, &c.Location, &c.Channel); err != nil {
			return nil, fmt.Errorf("index codes: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type segment struct {
	path   string
	format string
	seq    int
}

// segments returns the trace segments of key overlapping [tmin, tmax),
// ordered by codes and start time.
func (ix *index) segments(ctx context.Context, tmin, tmax float64, key domain.GroupKey) ([]segment, error) {
	q := `
		SELECT f.path, f.format, t.seq FROM ` + selected + `
		JOIN files f ON f.id = t.file_id
		WHERE t.tmin < ? AND t.tlast >= ?`
	args := []any{tmax, tmin}
	switch key.Grouping {
	case domain.GroupChannel:
		q += ` AND t.network = ? AND t.station = ? AND t.location = ? AND t.channel = ?`
		args = append(args, key.Codes.Network, key.Codes.Station, key.Codes.Location, key.Codes.Channel)
	case domain.GroupStation:
		q += ` AND t.network = ? AND t.station = ?`
		args = append(args, key.Codes.Network, key.Codes.Station)
	}
	q += ` ORDER BY t.network, t.station, t.location, t.channel, t.tmin`

	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("index segments: %w", err)
	}
	defer rows.Close()

	var out []segment
	for rows.Next() {
		var s segment
		if err := rows.Scan(&s.path, &s.format, &s.seq); err != nil {
			return nil, fmt.Errorf("index segments: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
