/*
Package unscramble is a library for recovering pictures hidden in scrambled
payload files.
*/
package unscramble

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/bodgit/unscramble/image"
	"github.com/bodgit/unscramble/walker"
	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Unscrambler decodes payload files, optionally remembering the results in
// a cache.
type Unscrambler struct {
	cache  *Cache
	logger *log.Logger
	opts   image.Options
}

// New returns an Unscrambler. If file is not empty it names the sqlite
// database used to cache decoded pictures.
func New(file string, logger *log.Logger, opts image.Options) (*Unscrambler, error) {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	u := &Unscrambler{
		logger: logger,
		opts:   opts,
	}
	if u.opts.Logger == nil {
		u.opts.Logger = logger
	}

	if file != "" {
		cache, err := NewCache(file)
		if err != nil {
			return nil, err
		}
		u.cache = cache
	}

	return u, nil
}

// Close releases the cache, if any
func (u *Unscrambler) Close() error {
	if u.cache == nil {
		return nil
	}
	return u.cache.Close()
}

func readPayload(r io.Reader) ([]byte, error) {
	if _, err := io.CopyN(ioutil.Discard, r, image.HeaderSize); err != nil {
		if err == io.EOF {
			return nil, image.ErrShortHeader
		}
		return nil, err
	}
	return ioutil.ReadAll(r)
}

// Load reads file and returns the payload that follows the header. Files
// compressed with zstd are decompressed first.
func Load(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)

	// Too short to be compressed is dealt with by readPayload
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		return readPayload(dec)
	}

	return readPayload(br)
}

// Decode loads file and reconstructs its picture, consulting the cache
// first when there is one.
func (u *Unscrambler) Decode(ctx context.Context, file string) (*image.Samples, error) {
	payload, err := Load(file)
	if err != nil {
		return nil, err
	}

	sha := fmt.Sprintf("%X", sha1.Sum(payload))

	if u.cache != nil {
		s, err := u.cache.Find(sha)
		if err != nil {
			return nil, err
		}
		if s != nil {
			u.logger.Printf("Cache hit for \"%s\", with SHA1 \"%s\"\n", file, sha)
			if u.opts.Strict && s.Exhausted > 0 {
				return nil, fmt.Errorf("%s: %d walks: %w", file, s.Exhausted, walker.ErrExhausted)
			}
			return s, nil
		}
	}

	s, err := image.Reconstruct(ctx, payload, u.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	if u.cache != nil {
		if err := u.cache.Store(sha, s); err != nil {
			return nil, err
		}
	}

	return s, nil
}
