package attacklog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DetectsEachCategory(t *testing.T) {
	cases := []struct {
		raw  string
		want Category
	}{
		{"id=1' OR '1'='1", CategorySQLi},
		{"<script>alert(1)</script>", CategoryXSS},
		{"../../../../etc/passwd", CategoryTraversal},
		{"${7*7}", CategorySSTI},
		{"ognl.OgnlContext", CategoryOGNL},
		{"perfectly ordinary request body", CategoryUnclassified},
	}
	for _, c := range cases {
		got, ok := Classify([]byte(c.raw))
		assert.Equal(t, c.want, got, c.raw)
		if c.want == CategoryUnclassified {
			assert.False(t, ok)
		} else {
			assert.True(t, ok)
		}
	}
}

func TestWriter_TruncatesSnippetAt4096(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	dir := t.TempDir()
	w := NewWriter(dir, nil)
	require.NoError(t, w.Record("127.0.0.1", "parse_error", long))
	require.NoError(t, w.Close())

	recs := readAllRecords(t, dir)
	require.Len(t, recs, 1)
	assert.Len(t, recs[0].Snippet, maxSnippetLen)
}

func TestWriter_AppendsJSONLToGzippedDayFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)

	require.NoError(t, w.Record("10.0.0.1", "json_decode_error", []byte("union select * from users")))
	require.NoError(t, w.Record("10.0.0.2", "json_decode_error", []byte("hello world")))
	require.NoError(t, w.Close())

	recs := readAllRecords(t, dir)
	require.Len(t, recs, 2)
	assert.Equal(t, CategorySQLi, recs[0].Category)
	assert.Equal(t, CategoryUnclassified, recs[1].Category)
}

func TestRedisTally_Increments(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tally := NewRedisTally(client, "")
	tally.Increment(CategorySQLi, "2026-07-31")

	val, err := client.Get(context.Background(), "argoproxy:attacklog:2026-07-31:sqli").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func readAllRecords(t *testing.T, dir string) []Record {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var recs []Record
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.NoError(t, scanner.Err())
	return recs
}
