// Package catalog resolves (uuid, offset) pairs against the uuidtext/
// dsc format-string catalogs (spec §4.3).
//
// Load indexes files lazily the way
// server/internal/registry/store.go's Store lazily fills a
// RWMutex-guarded map as instances register — here each map entry is
// filled from the filesystem the first time its UUID is looked up
// instead of from HTTP handshakes, and is never changed afterwards,
// since the whole catalog is read-only for the lifetime of a parse.
package catalog

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/coffersTech/ulog/internal/diag"
	"github.com/google/uuid"
)

// Catalog is the uniform uuidtext/dsc resolver described in spec §4.3.
type Catalog struct {
	root string

	mu       sync.RWMutex
	uuidtext map[uuid.UUID]*UuidtextFile
	dsc      map[uuid.UUID]*DscFile
}

// Load prepares lazy lookups of <XX>/<30-hex> and dsc/<32-hex> files
// under root, the uuidtext directory itself (spec §6). Load only checks
// that root exists; nothing is read up front. Each file is read and
// parsed on the first lookup of its UUID, so a partial/corrupt catalog
// does not block loading the rest.
func Load(root string) (*Catalog, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	return &Catalog{
		root:     root,
		uuidtext: make(map[uuid.UUID]*UuidtextFile),
		dsc:      make(map[uuid.UUID]*DscFile),
	}, nil
}

// ResolvedFormat is the (format_string, library_path, library_uuid)
// triple resolve_fmt returns (spec §4.3).
type ResolvedFormat struct {
	Format      string
	LibraryPath string
	LibraryUuid uuid.UUID
}

// ResolveFmt implements resolve_fmt from spec §4.3. On a catalog miss
// it returns a synthetic placeholder message alongside the error so
// callers can still emit a record (spec §4.3 "Errors" / §7 "recovered").
func (c *Catalog) ResolveFmt(id uuid.UUID, offset uint64, viaDsc bool) (ResolvedFormat, error) {
	if viaDsc {
		d, err := c.loadDsc(id)
		if err != nil {
			return placeholder(id, offset), err
		}
		format, libPath, libUuid, err := d.resolve(offset)
		if err != nil {
			return placeholder(id, offset), err
		}
		return ResolvedFormat{Format: format, LibraryPath: libPath, LibraryUuid: libUuid}, nil
	}

	u, err := c.loadUuidtext(id)
	if err != nil {
		return placeholder(id, offset), err
	}
	format, err := u.resolve(uint32(offset))
	if err != nil {
		return placeholder(id, offset), err
	}
	return ResolvedFormat{Format: format, LibraryPath: u.LibraryPath, LibraryUuid: id}, nil
}

// LibraryPath resolves just the library/executable path for a
// uuidtext-catalog UUID, without needing a format-string offset —
// used to label a LogRecord's sending process/library independent of
// any particular log site.
func (c *Catalog) LibraryPath(id uuid.UUID) (string, error) {
	u, err := c.loadUuidtext(id)
	if err != nil {
		return "", err
	}
	return u.LibraryPath, nil
}

func placeholder(id uuid.UUID, offset uint64) ResolvedFormat {
	return ResolvedFormat{Format: "<missing format at " + id.String() + "+" + hexU64(offset) + ">"}
}

func hexU64(v uint64) string {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return "0x" + hex.EncodeToString(b)
}

// loadUuidtext returns the cached UuidtextFile for id, parsing it from
// uuidtext/<first-2-hex>/<remaining-hex> on first access.
func (c *Catalog) loadUuidtext(id uuid.UUID) (*UuidtextFile, error) {
	c.mu.RLock()
	if f, ok := c.uuidtext[id]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	path := c.uuidtextPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.UuidNotFound{Uuid: id}
	}
	f, err := parseUuidtextFile(id, data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.uuidtext[id] = f
	c.mu.Unlock()
	return f, nil
}

// loadDsc returns the cached DscFile for id, parsing it from
// uuidtext/dsc/<32-hex> on first access.
func (c *Catalog) loadDsc(id uuid.UUID) (*DscFile, error) {
	c.mu.RLock()
	if f, ok := c.dsc[id]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	path := filepath.Join(c.root, "dsc", strippedHex(id))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.UuidNotFound{Uuid: id}
	}
	f, err := parseDscFile(id, data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.dsc[id] = f
	c.mu.Unlock()
	return f, nil
}

// uuidtextPath builds uuidtext/<XX>/<30-hex> from a UUID: the first
// two hex characters are the subdirectory (spec §4.3).
func (c *Catalog) uuidtextPath(id uuid.UUID) string {
	full := strippedHex(id)
	return filepath.Join(c.root, full[:2], full[2:])
}

func strippedHex(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}
