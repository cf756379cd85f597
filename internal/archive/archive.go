package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/talk2data/talk2data/internal/storage"
)

const ContentType = "application/vnd.apache.parquet"

// Entry is one answered read question whose rows should be kept.
type Entry struct {
	Database  string
	Question  string
	Statement string
	Operation string
	Table     string
	Columns   []string
	Rows      [][]any
}

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

// record is the on-disk row layout. Result values are heterogeneous, so each
// row is kept as a JSON array next to the column names it belongs to.
type record struct {
	RowIndex         int64  `parquet:"row_index"`
	Question         string `parquet:"question"`
	Statement        string `parquet:"statement"`
	Operation        string `parquet:"operation"`
	TableName        string `parquet:"table_name"`
	ColumnsJSON      string `parquet:"columns_json"`
	ValuesJSON       string `parquet:"values_json"`
	ArchivedAtUnixMs int64  `parquet:"archived_at_unix_ms"`
}

func Encode(entry Entry, archivedAt time.Time) (EncodeResult, error) {
	if len(entry.Rows) == 0 {
		return EncodeResult{}, fmt.Errorf("rows are required")
	}
	columnsJSON, err := json.Marshal(entry.Columns)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("marshal columns: %w", err)
	}

	rows := make([]record, 0, len(entry.Rows))
	for index, values := range entry.Rows {
		valuesJSON, err := json.Marshal(values)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("marshal row %d: %w", index, err)
		}
		rows = append(rows, record{
			RowIndex:         int64(index),
			Question:         entry.Question,
			Statement:        entry.Statement,
			Operation:        entry.Operation,
			TableName:        entry.Table,
			ColumnsJSON:      string(columnsJSON),
			ValuesJSON:       string(valuesJSON),
			ArchivedAtUnixMs: archivedAt.UnixMilli(),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[record](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(rows))}, nil
}

type Archiver struct {
	store  storage.ObjectStore
	prefix string
	now    func() time.Time
}

func New(store storage.ObjectStore, prefix string) *Archiver {
	return &Archiver{store: store, prefix: prefix, now: time.Now}
}

// Archive encodes entry to parquet and uploads it. The returned key is
// relative to the store, so it can be passed back to Get unchanged.
func (a *Archiver) Archive(ctx context.Context, entry Entry) (string, error) {
	if a.store == nil {
		return "", fmt.Errorf("object store is required")
	}
	now := a.now().UTC()
	encoded, err := Encode(entry, now)
	if err != nil {
		return "", err
	}
	key, err := storage.BuildArchivePath(a.prefix, entry.Database, entry.Table, now, strconv.FormatInt(now.UnixNano(), 10))
	if err != nil {
		return "", err
	}
	_, err = a.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: ContentType,
		Metadata: map[string]string{
			"Database":  entry.Database,
			"Operation": entry.Operation,
			"Rows":      strconv.FormatInt(encoded.RecordCount, 10),
			"Question":  metadataValue(entry.Question),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	return key, nil
}

// metadataValue keeps user text within what S3 accepts in headers.
func metadataValue(value string) string {
	value = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, value)
	if len(value) > 512 {
		value = value[:512]
	}
	return strings.TrimSpace(value)
}
