package unscramble

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/unscramble/image"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Cache stores decoded pictures keyed by the SHA1 of their payload. The
// samples are kept zstd compressed.
type Cache struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCache opens, creating if necessary, the sqlite database in file
func NewCache(file string) (*Cache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS payload (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, exhausted INTEGER NOT NULL, samples BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &Cache{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Close closes the database
func (c *Cache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

// Find returns the picture for the payload with the given SHA1, or nil if
// it hasn't been seen before.
func (c *Cache) Find(sha string) (*image.Samples, error) {
	var exhausted int
	var blob []byte
	switch err := c.db.QueryRow("SELECT exhausted, samples FROM payload WHERE sha1 = ?", sha).Scan(&exhausted, &blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		b, err := c.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, err
		}

		s := new(image.Samples)
		if err := s.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		s.Exhausted = exhausted

		return s, nil
	default:
		return nil, err
	}
}

// Store remembers the picture for the payload with the given SHA1
func (c *Cache) Store(sha string, s *image.Samples) error {
	b, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := c.db.Exec("INSERT OR REPLACE INTO payload (sha1, exhausted, samples) VALUES (?, ?, ?)", sha, s.Exhausted, c.enc.EncodeAll(b, nil)); err != nil {
		return err
	}
	return nil
}
