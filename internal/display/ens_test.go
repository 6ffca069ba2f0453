package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/grtinfo/internal/ens"
)

func init() {
	DisableColors()
}

func TestRenderLookup(t *testing.T) {
	var buf bytes.Buffer
	RenderLookup(&buf, Lookup{Query: "0xabc", Result: "alice.eth", Found: true})
	RenderLookup(&buf, Lookup{Query: "nobody"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0xabc → alice.eth", lines[0])
	assert.Equal(t, "nobody → not found", lines[1])
}

func TestBatchRowsSortedAndRendered(t *testing.T) {
	rows := BatchRows(map[string]string{"0xbb": "", "0xaa": "alice.eth"})
	assert.Equal(t, []BatchRow{{Address: "0xaa", Name: "alice.eth"}, {Address: "0xbb"}}, rows)

	var buf bytes.Buffer
	RenderBatch(&buf, rows)
	out := buf.String()
	assert.Contains(t, out, "alice.eth")
	assert.Contains(t, out, "1/2 resolved")
	assert.Less(t, strings.Index(out, "0xaa"), strings.Index(out, "0xbb"))
}

func TestRenderSearch(t *testing.T) {
	var buf bytes.Buffer
	RenderSearch(&buf, "foo", nil)
	assert.Contains(t, buf.String(), "No names matching foo")

	buf.Reset()
	RenderSearch(&buf, "foo", []ens.NameRecord{
		{Name: "foo-indexer.eth", ResolvedAddress: "0xaa"},
		{Name: "foobar.eth"},
	})
	out := buf.String()
	assert.Contains(t, out, "foo-indexer.eth")
	assert.Contains(t, out, "0xaa")
	assert.Less(t, strings.Index(out, "foo-indexer.eth"), strings.Index(out, "foobar.eth"))
}

func TestRenderCache(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var buf bytes.Buffer
	RenderCache(&buf, nil, time.Hour, now)
	assert.Contains(t, buf.String(), "Cache is empty")

	buf.Reset()
	RenderCache(&buf, []ens.Entry{
		{Address: "0xaa", Name: "alice.eth", ResolvedAt: now.Add(-2 * time.Hour)},
		{Address: "0xbb", ResolvedAt: now.Add(-10 * time.Minute)},
	}, 24*time.Hour, now)
	out := buf.String()
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "10 minutes ago")
	assert.Contains(t, out, "2 entries (1 negative)")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []BatchRow{{Address: "0xaa", Name: "alice.eth"}, {Address: "0xbb"}}))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice.eth", rows[0]["name"])
	_, hasName := rows[1]["name"]
	assert.False(t, hasName)
}
