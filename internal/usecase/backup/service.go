// Package backup dumps the ingested tables to newline-delimited JSON and
// restores them with upserts.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"

	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
)

const (
	defaultBatchSize = 512
	formatVersion    = 1
	metaType         = "meta"
)

var (
	errNoTablesSelected = errors.New("backup: no tables selected")
	// ErrSchemaMismatch is returned by a strict restore when the dump was
	// taken from a different schema.
	ErrSchemaMismatch = errors.New("backup: schema hash mismatch")
)

type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

type noopProgress struct{}

func (noopProgress) StartTable(string, int) {}
func (noopProgress) Increment(string, int)  {}
func (noopProgress) FinishTable(string)     {}

// Service reads and writes the tables declared in database.Tables.
type Service struct {
	db         *sql.DB
	driver     string
	logger     logrus.FieldLogger
	batchSize  int
	tables     []*schema.Table
	tableIndex map[string]*schema.Table
	schemaHash string
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService binds a backup service to an open handle. driver is
// config.DriverSQLite or config.DriverPostgres.
func NewService(db *sql.DB, driver string, logger logrus.FieldLogger, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, errors.New("backup: database handle is required")
	}
	switch driver {
	case config.DriverSQLite, config.DriverPostgres:
	default:
		return nil, fmt.Errorf("backup: unsupported driver %q", driver)
	}

	tables, err := schema.CopyTables(database.Tables)
	if err != nil {
		return nil, fmt.Errorf("copy schema tables: %w", err)
	}
	tableIndex := make(map[string]*schema.Table, len(tables))
	for _, tbl := range tables {
		tableIndex[tbl.Name] = tbl
	}

	svc := &Service{
		db:         db,
		driver:     driver,
		logger:     logger,
		batchSize:  defaultBatchSize,
		tables:     tables,
		tableIndex: tableIndex,
		schemaHash: SchemaHash(tables),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	tables   []string
	reporter ProgressReporter
}

// WithTables restricts export to the named tables.
func WithTables(tables []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type RestoreOption func(*restoreConfig)

type restoreConfig struct {
	tables []string
	strict bool
}

// WithRestoreTables restricts restore to the named tables.
func WithRestoreTables(tables []string) RestoreOption {
	return func(cfg *restoreConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

// WithStrictSchema makes a schema hash mismatch fatal instead of a warning.
func WithStrictSchema() RestoreOption {
	return func(cfg *restoreConfig) { cfg.strict = true }
}

type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	SchemaHash string         `json:"schema_hash,omitempty"`
	Tables     []string       `json:"tables,omitempty"`
	RowCounts  map[string]int `json:"row_counts,omitempty"`
	Payload    any            `json:"payload,omitempty"`
}

type rawRecord struct {
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	ExportedAt *time.Time      `json:"exported_at"`
	SchemaHash string          `json:"schema_hash"`
	Tables     []string        `json:"tables"`
	RowCounts  map[string]int  `json:"row_counts"`
	Payload    json.RawMessage `json:"payload"`
}

// Summary describes a finished restore.
type Summary struct {
	Rows         map[string]int
	SchemaHash   string
	SchemaDiffer bool
}

type sequenceKey struct {
	Table  string
	Column string
}

type sequenceStats map[sequenceKey]int64

func (s *Service) builder() *entsql.DialectBuilder { return entsql.Dialect(s.driver) }

// Export writes a meta record followed by one record per row, parents
// before children.
func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	counts := make(map[string]int, len(tables))
	for _, tbl := range tables {
		count, err := s.countTableRows(ctx, tbl.Name)
		if err != nil {
			return fmt.Errorf("count table %s: %w", tbl.Name, err)
		}
		counts[tbl.Name] = count
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	meta := record{
		Type:       metaType,
		Version:    formatVersion,
		ExportedAt: &now,
		SchemaHash: s.schemaHash,
		Tables:     tableNames(tables),
		RowCounts:  counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, tbl := range tables {
		reporter.StartTable(tbl.Name, counts[tbl.Name])
		if err := s.exportTable(ctx, tbl, reporter, writer); err != nil {
			return err
		}
		reporter.FinishTable(tbl.Name)
	}
	s.logger.WithFields(logrus.Fields{"tables": len(tables), "schema_hash": s.schemaHash}).Info("export finished")
	return writer.Flush()
}

// Restore upserts every row record of the selected tables in one
// transaction. Records of other tables are skipped.
func (s *Service) Restore(ctx context.Context, r io.Reader, opts ...RestoreOption) (*Summary, error) {
	cfg := restoreConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := s.selectTables(cfg.tables)
	if err != nil {
		return nil, err
	}
	tableFilter := make(map[string]*schema.Table, len(tables))
	for _, tbl := range tables {
		tableFilter[tbl.Name] = tbl
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	var (
		br       = bufio.NewReader(r)
		metaSeen bool
		stats    = make(sequenceStats)
		summary  = &Summary{Rows: make(map[string]int, len(tables))}
	)
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec rawRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("decode record: %w", err)
			}

			if rec.Type == metaType {
				if err := s.checkMeta(rec, cfg.strict, summary); err != nil {
					return nil, err
				}
				metaSeen = true
			} else if tbl, ok := tableFilter[rec.Type]; ok {
				if !metaSeen {
					return nil, errors.New("backup: row record before meta record")
				}
				if len(rec.Payload) == 0 {
					return nil, fmt.Errorf("backup: missing payload for table %s", rec.Type)
				}
				if err := s.restoreRow(ctx, tx, tbl, rec.Payload, stats); err != nil {
					return nil, err
				}
				summary.Rows[tbl.Name]++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return nil, errors.New("backup: missing meta record")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit restore: %w", err)
	}
	commit = true

	if err := s.syncSequences(ctx, stats); err != nil {
		return nil, err
	}
	s.logger.WithField("rows", summary.Rows).Info("restore finished")
	return summary, nil
}

func (s *Service) checkMeta(rec rawRecord, strict bool, summary *Summary) error {
	if rec.Version != formatVersion {
		return fmt.Errorf("backup: unsupported format version %d", rec.Version)
	}
	summary.SchemaHash = rec.SchemaHash
	if rec.SchemaHash == s.schemaHash {
		return nil
	}
	summary.SchemaDiffer = true
	if strict {
		return fmt.Errorf("%w: dump %s, database %s", ErrSchemaMismatch, rec.SchemaHash, s.schemaHash)
	}
	s.logger.WithFields(logrus.Fields{"dump": rec.SchemaHash, "database": s.schemaHash}).
		Warn("backup was taken from a different schema")
	return nil
}

func (s *Service) exportTable(ctx context.Context, table *schema.Table, reporter ProgressReporter, w io.Writer) error {
	columns := columnNames(table)
	if len(columns) == 0 {
		return nil
	}
	batch := s.batchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	for offset := 0; ; offset += batch {
		query, args := s.builder().Select(columns...).
			From(entsql.Table(table.Name)).
			OrderBy(orderColumns(table)...).
			Limit(batch).
			Offset(offset).
			Query()
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query %s: %w", table.Name, err)
		}

		rowCount, err := s.writeRows(table, columns, rows, reporter, w)
		rows.Close()
		if err != nil {
			return err
		}
		if rowCount < batch {
			return nil
		}
	}
}

func (s *Service) writeRows(table *schema.Table, columns []string, rows *sql.Rows, reporter ProgressReporter, w io.Writer) (int, error) {
	rowCount := 0
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range dest {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return rowCount, fmt.Errorf("scan %s: %w", table.Name, err)
		}
		rowMap, err := convertRow(table, columns, values)
		if err != nil {
			return rowCount, err
		}
		if err := writeRecord(w, record{Type: table.Name, Payload: rowMap}); err != nil {
			return rowCount, err
		}
		reporter.Increment(table.Name, 1)
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return rowCount, fmt.Errorf("iterate %s: %w", table.Name, err)
	}
	return rowCount, nil
}

func (s *Service) restoreRow(ctx context.Context, tx *sql.Tx, table *schema.Table, payload json.RawMessage, stats sequenceStats) error {
	values, err := decodePayload(table, payload)
	if err != nil {
		return fmt.Errorf("decode payload for %s: %w", table.Name, err)
	}
	if len(values) == 0 {
		return nil
	}

	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, col := range table.Columns {
		val, ok := values[col.Name]
		if !ok {
			continue
		}
		if val == nil && !col.Nullable {
			def, ok := defaultValueForColumn(col)
			if !ok {
				return fmt.Errorf("backup: missing required value for %s.%s", table.Name, col.Name)
			}
			val = def
		}
		cols = append(cols, col.Name)
		args = append(args, val)
		if col.Increment {
			if n, ok := val.(int64); ok {
				key := sequenceKey{Table: table.Name, Column: col.Name}
				stats[key] = max(stats[key], n)
			}
		}
	}
	if len(cols) == 0 {
		return nil
	}

	insert := s.builder().Insert(table.Name).Columns(cols...).Values(args...)
	if conflict := conflictColumns(table); len(conflict) > 0 {
		if len(difference(cols, conflict)) == 0 {
			insert = insert.OnConflict(entsql.ConflictColumns(conflict...), entsql.DoNothing())
		} else {
			insert = insert.OnConflict(entsql.ConflictColumns(conflict...), entsql.ResolveWithNewValues())
		}
	}
	query, qargs := insert.Query()
	if _, err := tx.ExecContext(ctx, query, qargs...); err != nil {
		return fmt.Errorf("insert into %s: %w", table.Name, err)
	}
	return nil
}

// selectTables keeps the creation order of database.Tables so that restores
// insert parents first.
func (s *Service) selectTables(requested []string) ([]*schema.Table, error) {
	if len(requested) == 0 {
		return slices.Clone(s.tables), nil
	}
	set := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		n := strings.TrimSpace(strings.ToLower(name))
		if n == "" {
			continue
		}
		if _, ok := s.tableIndex[n]; !ok {
			return nil, fmt.Errorf("backup: unsupported table %q", name)
		}
		set[n] = struct{}{}
	}
	if len(set) == 0 {
		return nil, errNoTablesSelected
	}
	tbls := make([]*schema.Table, 0, len(set))
	for _, tbl := range s.tables {
		if _, ok := set[tbl.Name]; ok {
			tbls = append(tbls, tbl)
		}
	}
	return tbls, nil
}

func (s *Service) countTableRows(ctx context.Context, table string) (int, error) {
	query, args := s.builder().Select(entsql.Count("*")).From(entsql.Table(table)).Query()
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func convertRow(table *schema.Table, columns []string, values []any) (map[string]any, error) {
	result := make(map[string]any, len(columns))
	for idx, name := range columns {
		col := findColumn(table, name)
		if col == nil {
			return nil, fmt.Errorf("column %s not found in table %s", name, table.Name)
		}
		val, err := convertDBValue(col, values[idx])
		if err != nil {
			return nil, fmt.Errorf("convert %s.%s: %w", table.Name, name, err)
		}
		result[name] = val
	}
	return result, nil
}

func convertDBValue(col *schema.Column, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		// database/sql hands back text columns as bytes on some drivers
		return string(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	}
	if isIntColumn(col) {
		return toInt64(value)
	}
	return value, nil
}

func decodePayload(table *schema.Table, payload json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	result := make(map[string]any, len(raw))
	for key, val := range raw {
		col := findColumn(table, key)
		if col == nil {
			return nil, fmt.Errorf("column %s not found in table %s", key, table.Name)
		}
		converted, err := convertJSONValue(col, val)
		if err != nil {
			return nil, fmt.Errorf("convert %s.%s: %w", table.Name, key, err)
		}
		result[key] = converted
	}
	return result, nil
}

func convertJSONValue(col *schema.Column, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch {
	case isIntColumn(col):
		return toInt64(value)
	case col.Type == field.TypeTime:
		str := fmt.Sprint(value)
		if str == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	default:
		return value, nil
	}
}

func isIntColumn(col *schema.Column) bool {
	switch col.Type {
	case field.TypeInt8, field.TypeInt16, field.TypeInt32, field.TypeInt, field.TypeInt64:
		return true
	}
	return false
}

func conflictColumns(table *schema.Table) []string {
	if len(table.PrimaryKey) > 0 {
		return columnList(table.PrimaryKey)
	}
	for _, idx := range table.Indexes {
		if idx.Unique && len(idx.Columns) > 0 {
			return columnList(idx.Columns)
		}
	}
	return nil
}

func orderColumns(table *schema.Table) []string {
	if len(table.PrimaryKey) > 0 {
		return columnList(table.PrimaryKey)
	}
	return columnNames(table)
}

func columnList(cols []*schema.Column) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = col.Name
	}
	return out
}

func columnNames(table *schema.Table) []string {
	return columnList(table.Columns)
}

func tableNames(tables []*schema.Table) []string {
	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	return names
}

func difference(slice []string, exclude []string) []string {
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if !slices.Contains(exclude, item) {
			result = append(result, item)
		}
	}
	return result
}

func findColumn(table *schema.Table, name string) *schema.Column {
	for _, col := range table.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

// SchemaHash fingerprints table layouts so that a restore can tell whether a
// dump matches the current schema.
func SchemaHash(tables []*schema.Table) string {
	builder := &strings.Builder{}
	sortedTables := slices.Clone(tables)
	sort.Slice(sortedTables, func(i, j int) bool { return sortedTables[i].Name < sortedTables[j].Name })

	for _, tbl := range sortedTables {
		builder.WriteString(tbl.Name)
		builder.WriteString("|cols:")
		sortedCols := slices.Clone(tbl.Columns)
		sort.Slice(sortedCols, func(i, j int) bool { return sortedCols[i].Name < sortedCols[j].Name })
		for _, col := range sortedCols {
			fmt.Fprintf(builder, "%s:%d:%t:%t:%t;", col.Name, col.Type, col.Nullable, col.Unique, col.Increment)
		}
		builder.WriteString("|pk:")
		for _, pk := range tbl.PrimaryKey {
			builder.WriteString(pk.Name)
			builder.WriteByte(',')
		}
		builder.WriteString("|idx:")
		sortedIdx := slices.Clone(tbl.Indexes)
		sort.Slice(sortedIdx, func(i, j int) bool { return sortedIdx[i].Name < sortedIdx[j].Name })
		for _, idx := range sortedIdx {
			builder.WriteString(idx.Name)
			builder.WriteString(":")
			builder.WriteString(strconv.FormatBool(idx.Unique))
			builder.WriteString(":")
			for _, col := range idx.Columns {
				builder.WriteString(col.Name)
				builder.WriteByte(',')
			}
			builder.WriteByte(';')
		}
		builder.WriteByte('\n')
	}
	sum := blake3.Sum256([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}

func writeRecord(w io.Writer, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// syncSequences moves postgres serial sequences past the restored ids.
func (s *Service) syncSequences(ctx context.Context, stats sequenceStats) error {
	if s.driver != config.DriverPostgres {
		return nil
	}
	for key, maxVal := range stats {
		if maxVal <= 0 {
			continue
		}
		query := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', '%s'), GREATEST(%d, (SELECT COALESCE(MAX(%s), 0) FROM %s)))",
			key.Table, key.Column, maxVal, key.Column, key.Table,
		)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("sync sequence for %s.%s: %w", key.Table, key.Column, err)
		}
	}
	return nil
}

func defaultValueForColumn(col *schema.Column) (any, bool) {
	switch {
	case col.Type == field.TypeString:
		return "", true
	case isIntColumn(col):
		return int64(0), true
	case col.Default != nil:
		return col.Default, true
	default:
		return nil, false
	}
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported int type %T", value)
	}
}
