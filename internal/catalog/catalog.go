package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/database"
)

var ErrNotFound = errors.New("catalog: not found")

// Entry is one database a question can be asked against.
type Entry struct {
	Name       string           `json:"name"`
	Dialect    database.Dialect `json:"dialect"`
	SizeBytes  int64            `json:"size_bytes,omitempty"`
	ModifiedAt *time.Time       `json:"modified_at,omitempty"`
	Default    bool             `json:"default"`
}

// Directory discovers database files in a single data directory. A postgres
// DSN configured as the default is listed alongside the files.
type Directory struct {
	root        string
	defaultName string
	pingTimeout time.Duration
}

func NewDirectory(root, defaultName string, pingTimeout time.Duration) *Directory {
	return &Directory{
		root:        root,
		defaultName: strings.TrimSpace(defaultName),
		pingTimeout: pingTimeout,
	}
}

func (d *Directory) Root() string {
	return d.root
}

func (d *Directory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read data directory %q: %w", d.root, err)
	}

	entries := make([]Entry, 0, len(dirEntries)+1)
	if dsn, ok := d.defaultDSN(); ok {
		src, err := database.ParseSource(dsn)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: src.Name, Dialect: src.Kind})
	}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		dialect, ok := database.DialectForPath(dirEntry.Name())
		if !ok {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		modified := info.ModTime().UTC()
		entries = append(entries, Entry{
			Name:       dirEntry.Name(),
			Dialect:    dialect,
			SizeBytes:  info.Size(),
			ModifiedAt: &modified,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Dialect == database.DialectPostgres || entries[j].Dialect == database.DialectPostgres {
			return entries[i].Dialect == database.DialectPostgres && entries[j].Dialect != database.DialectPostgres
		}
		return entries[i].Name < entries[j].Name
	})

	defaultName := d.resolveDefault(entries)
	for i := range entries {
		entries[i].Default = entries[i].Name == defaultName
	}
	return entries, nil
}

// Open returns the source for name, or for the default database when name is
// empty. Names are bare file names; anything that would escape the data
// directory is reported as ErrNotFound.
func (d *Directory) Open(ctx context.Context, name string) (database.Source, error) {
	name = strings.TrimSpace(name)
	entries, err := d.List(ctx)
	if err != nil {
		return database.Source{}, err
	}
	if name == "" {
		name = d.resolveDefault(entries)
		if name == "" {
			return database.Source{}, fmt.Errorf("no database found in %q: %w", d.root, ErrNotFound)
		}
	}

	for _, entry := range entries {
		if entry.Name != name {
			continue
		}
		target := filepath.Join(d.root, entry.Name)
		if entry.Dialect == database.DialectPostgres {
			target, _ = d.defaultDSN()
		}
		src, err := database.ParseSource(target)
		if err != nil {
			return database.Source{}, err
		}
		src.PingTimeout = d.pingTimeout
		return src, nil
	}
	return database.Source{}, fmt.Errorf("database %q: %w", name, ErrNotFound)
}

// Create returns a source for a new file in the data directory. The file is
// created by the driver on first connect.
func (d *Directory) Create(name string) (database.Source, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return database.Source{}, fmt.Errorf("invalid database file name %q", name)
	}
	if _, ok := database.DialectForPath(name); !ok {
		return database.Source{}, fmt.Errorf("unsupported database file %q", name)
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return database.Source{}, fmt.Errorf("create data directory %q: %w", d.root, err)
	}
	src, err := database.ParseSource(filepath.Join(d.root, name))
	if err != nil {
		return database.Source{}, err
	}
	src.PingTimeout = d.pingTimeout
	return src, nil
}

func (d *Directory) resolveDefault(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	if d.defaultName != "" {
		want := d.defaultName
		if dsn, ok := d.defaultDSN(); ok {
			if src, err := database.ParseSource(dsn); err == nil {
				want = src.Name
			}
		}
		for _, entry := range entries {
			if entry.Name == want {
				return entry.Name
			}
		}
	}
	return entries[0].Name
}

func (d *Directory) defaultDSN() (string, bool) {
	if strings.HasPrefix(d.defaultName, "postgres://") || strings.HasPrefix(d.defaultName, "postgresql://") {
		return d.defaultName, true
	}
	return "", false
}
