package unscramble

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	stdimage "image"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bodgit/unscramble/image"
	"github.com/bodgit/unscramble/walker"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encoded returns a picture, bright in the top half, in the scrambled
// format.
func encoded(t *testing.T) []byte {
	m := stdimage.NewPaletted(image.Bounds, image.Palette)
	for i := 0; i < len(m.Pix)/2; i++ {
		m.Pix[i] = 1
	}

	b := new(bytes.Buffer)
	require.Nil(t, image.Encode(b, m))
	return b.Bytes()
}

func writeFile(t *testing.T, dir, name string, b []byte) string {
	file := filepath.Join(dir, name)
	require.Nil(t, ioutil.WriteFile(file, b, 0644))
	return file
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	header := bytes.Repeat([]byte{0xaa}, image.HeaderSize)
	payload := []byte{1, 2, 3, 4, 5}

	b, err := Load(writeFile(t, dir, "plain.bin", append(header, payload...)))
	require.Nil(t, err)
	assert.Equal(t, payload, b)

	enc, err := zstd.NewWriter(nil)
	require.Nil(t, err)
	compressed := enc.EncodeAll(append(header, payload...), nil)
	require.Nil(t, enc.Close())

	b, err = Load(writeFile(t, dir, "compressed.zst", compressed))
	require.Nil(t, err)
	assert.Equal(t, payload, b)

	b, err = Load(writeFile(t, dir, "empty.bin", header))
	require.Nil(t, err)
	assert.Empty(t, b)

	_, err = Load(writeFile(t, dir, "short.bin", header[:10]))
	assert.Equal(t, image.ErrShortHeader, err)

	_, err = Load(filepath.Join(dir, "missing.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnscrambler_Decode(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "data", encoded(t))

	var logs bytes.Buffer
	u, err := New(filepath.Join(dir, "cache.db"), log.New(&logs, "", 0), image.Options{Strict: true})
	require.Nil(t, err)
	defer u.Close()

	s1, err := u.Decode(context.Background(), file)
	require.Nil(t, err)
	assert.True(t, s1.BrightAt(0, 0))
	assert.True(t, s1.BrightAt(511, 255))
	assert.False(t, s1.BrightAt(0, 256))
	assert.Equal(t, 0, s1.Exhausted)
	assert.NotContains(t, logs.String(), "Cache hit")

	s2, err := u.Decode(context.Background(), file)
	require.Nil(t, err)
	assert.Equal(t, s1.Pix, s2.Pix)
	assert.Contains(t, logs.String(), "Cache hit")
}

func TestUnscrambler_DecodeCachedExhausted(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")

	payload := []byte{1, 2, 3, 4}
	file := writeFile(t, dir, "data", append(make([]byte, image.HeaderSize), payload...))

	// Too short to decode, so any result has to come from the cache
	s := image.NewSamples()
	s.Pix[0] = image.MaxSample
	s.Exhausted = 1

	strict, err := New(db, nil, image.Options{Strict: true})
	require.Nil(t, err)
	defer strict.Close()
	require.Nil(t, strict.cache.Store(fmt.Sprintf("%X", sha1.Sum(payload)), s))

	_, err = strict.Decode(context.Background(), file)
	assert.True(t, errors.Is(err, walker.ErrExhausted))

	permissive, err := New(db, nil, image.Options{})
	require.Nil(t, err)
	defer permissive.Close()

	got, err := permissive.Decode(context.Background(), file)
	require.Nil(t, err)
	assert.Equal(t, s, got)
}

func TestUnscrambler_DecodeCorrupt(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "bad.bin", make([]byte, image.HeaderSize+100))

	u, err := New("", nil, image.Options{})
	require.Nil(t, err)
	defer u.Close()

	_, err = u.Decode(context.Background(), file)
	assert.True(t, errors.Is(err, image.ErrCorruptPayload))
}

func TestCache(t *testing.T) {
	c, err := NewCache(filepath.Join(t.TempDir(), "cache.db"))
	require.Nil(t, err)
	defer c.Close()

	s, err := c.Find("missing")
	require.Nil(t, err)
	assert.Nil(t, s)

	s = image.NewSamples()
	s.Pix[0] = image.MaxSample
	s.Exhausted = 3
	require.Nil(t, c.Store("ABC", s))
	require.Nil(t, c.Store("ABC", s))

	got, err := c.Find("ABC")
	require.Nil(t, err)
	assert.Equal(t, s, got)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data", encoded(t))
	writeFile(t, dir, "bad.bin", make([]byte, image.HeaderSize+100))
	writeFile(t, dir, "short.dat", []byte{1, 2, 3})
	writeFile(t, dir, "notes.md", []byte("ignored"))
	require.Nil(t, os.Mkdir(filepath.Join(dir, ".hidden"), 0755))
	writeFile(t, filepath.Join(dir, ".hidden"), "data", encoded(t))

	var logs bytes.Buffer
	u, err := New("", log.New(&logs, "", 0), image.Options{})
	require.Nil(t, err)
	defer u.Close()

	require.Nil(t, u.Scan(dir))

	b, err := ioutil.ReadFile(filepath.Join(dir, "data"+TextExt))
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	require.Len(t, lines, 512)
	assert.Equal(t, strings.Repeat(".", 512), lines[0])
	assert.Equal(t, strings.Repeat("o", 512), lines[511])

	for _, name := range []string{"bad.bin", "short.dat", "notes.md", filepath.Join(".hidden", "data")} {
		_, err := os.Stat(filepath.Join(dir, name+TextExt))
		assert.True(t, os.IsNotExist(err), name)
	}

	assert.Contains(t, logs.String(), "Skipping")
}
