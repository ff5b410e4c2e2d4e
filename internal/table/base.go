package table

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/record"
)

const tableExtension = ".table"

// Base is a local, file-backed table: the durable form every CREATE TABLE
// produces, and the only kind of table INSERT/UPDATE/DELETE may target.
type Base struct {
	dir    string
	name   string
	schema record.Schema
}

// Path returns the on-disk path of a table named name under dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+tableExtension)
}

func tempPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.tmp", name, uuid.NewString()))
}

// Create writes a new, empty table file with schema's header line. It
// fails if the table already exists.
func Create(dir string, schema record.Schema) (*Base, error) {
	path := Path(dir, schema.TableName)
	if _, err := os.Stat(path); err == nil {
		return nil, queryerr.New("table %s already exists", schema.TableName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("table: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("table: create %s: %w", schema.TableName, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, schema.Serialize()); err != nil {
		return nil, fmt.Errorf("table: write header: %w", err)
	}
	return &Base{dir: dir, name: schema.TableName, schema: schema}, nil
}

// Open loads an existing table's schema from its header line without
// reading its rows.
func Open(dir, name string) (*Base, error) {
	path := Path(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, queryerr.New("table %s does not exist", name)
		}
		return nil, fmt.Errorf("table: open %s: %w", name, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		return nil, queryerr.New("table %s has no schema header", name)
	}
	schema, err := record.ParseSchema(name, scanner.Text())
	if err != nil {
		return nil, err
	}
	return &Base{dir: dir, name: name, schema: schema}, nil
}

// Drop removes a table's backing file.
func Drop(dir, name string) error {
	if err := os.Remove(Path(dir, name)); err != nil {
		if os.IsNotExist(err) {
			return queryerr.New("table %s does not exist", name)
		}
		return fmt.Errorf("table: drop %s: %w", name, err)
	}
	return nil
}

// ListTables returns the names of every table file under dir.
func ListTables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("table: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != tableExtension {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), tableExtension))
	}
	return names, nil
}

func (b *Base) Name() string { return b.name }
func (b *Base) Schema() record.Schema { return b.schema }

// RowCount scans the file once to count data lines.
func (b *Base) RowCount() (int, error) {
	f, err := os.Open(Path(b.dir, b.name))
	if err != nil {
		return 0, fmt.Errorf("table: row count: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		return 0, nil
	}
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

type fileCursor struct {
	f       *os.File
	scanner *bufio.Scanner
	schema  record.Schema
}

// Open returns a fresh streaming cursor over the table's rows, skipping
// the header line.
func (b *Base) Open() (Cursor, error) {
	f, err := os.Open(Path(b.dir, b.name))
	if err != nil {
		return nil, fmt.Errorf("table: open cursor: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() { // skip header
		f.Close()
		return nil, queryerr.New("table %s has no schema header", b.name)
	}
	return &fileCursor{f: f, scanner: scanner, schema: b.schema}, nil
}

func (c *fileCursor) Next() (record.Row, bool, error) {
	if !c.scanner.Scan() {
		return record.Row{}, false, c.scanner.Err()
	}
	row, err := record.ParseRow(c.schema, c.scanner.Text())
	if err != nil {
		return record.Row{}, false, err
	}
	return row, true, nil
}

func (c *fileCursor) Close() error { return c.f.Close() }
