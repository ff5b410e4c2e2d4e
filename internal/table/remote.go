package table

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tablesql/tablesql/internal/queryerr"
	"github.com/tablesql/tablesql/internal/record"
)

// unknownRowCount is what a remote table reports for RowCount: its true
// size isn't known without draining the HTTP body, so it is treated as
// infinity, which forces it to always be the join's probe side.
const unknownRowCount = math.MaxInt

// Remote is a read-only table sourced from an HTTP URL: the body's first
// line gives whitespace-separated column names, and every column is
// synthesized as a nullable, unreferenced, non-key varchar(25) — there is
// no schema to declare, so the engine picks a plain text type.
type Remote struct {
	url    string
	schema record.Schema
	rows   []record.Row
}

// Fetch retrieves rawURL over a raw TCP connection (HTTP/1.1 GET,
// Connection: close) and synthesizes a Remote table from the response
// body.
func Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*Remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, queryerr.New("invalid remote table URL: %s", rawURL)
	}
	if u.Scheme != "http" {
		return nil, queryerr.New("only http:// remote tables are supported")
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":80"
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("table: remote dial: %w", err)
	}
	defer conn.Close()

	path := u.RequestURI()
	if path == "" {
		path = "/"
	}
	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: Close\r\n\r\n", path, u.Hostname())
	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(req)); err != nil {
		return nil, fmt.Errorf("table: remote write: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(conn); err != nil {
		return nil, fmt.Errorf("table: remote read: %w", err)
	}

	headerEnd := bytes.Index(buf.Bytes(), []byte("\r\n\r\n"))
	if headerEnd < 0 {
		return nil, queryerr.New("malformed HTTP response from %s", rawURL)
	}
	body := buf.Bytes()[headerEnd+4:]

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		return nil, queryerr.New("remote table %s returned no data", rawURL)
	}
	colNames := strings.Fields(scanner.Text())
	if len(colNames) == 0 {
		return nil, queryerr.New("remote table %s has no columns", rawURL)
	}
	tableName := syntheticTableName(rawURL)
	cols := make([]record.ColumnMetadata, len(colNames))
	for i, name := range colNames {
		m, err := record.NewColumnMetadata(name, tableName, "varchar(25)", "", false, false)
		if err != nil {
			return nil, err
		}
		cols[i] = m
	}
	schema, err := record.NewSchema(tableName, cols)
	if err != nil {
		return nil, err
	}

	var rows []record.Row
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row, err := record.NewRowFromValues(schema, fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return &Remote{url: rawURL, schema: schema, rows: rows}, nil
}

func syntheticTableName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "remote"
	}
	base := strings.Trim(u.Path, "/")
	if base == "" {
		return "remote"
	}
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return base
}

func (r *Remote) Schema() record.Schema { return r.schema }
func (r *Remote) RowCount() (int, error) { return unknownRowCount, nil }
func (r *Remote) Open() (Cursor, error) { return NewSliceCursor(r.rows), nil }
