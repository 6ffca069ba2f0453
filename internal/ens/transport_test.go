package ens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/grtinfo/internal/graphql"
)

type capturedRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// subgraph serves body for every request and records what it received.
func subgraph(t *testing.T, body string) (*SubgraphTransport, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	requests := func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), seen...)
	}
	client := graphql.NewClient(srv.URL, time.Second, 0)
	return NewSubgraphTransport(client, TransportOptions{}), requests
}

func TestSubgraphResolveOne(t *testing.T) {
	tr, requests := subgraph(t, `{"data":{"domains":[{"name":"alice.eth"}]}}`)

	name, outcome := tr.ResolveOne(context.Background(), "0xABCD")
	assert.Equal(t, Resolved, outcome)
	assert.Equal(t, "alice.eth", name)

	require.Len(t, requests(), 1)
	req := requests()[0]
	assert.Contains(t, req.Query, "orderBy: createdAt")
	assert.Equal(t, "0xabcd", req.Variables["address"])
}

func TestSubgraphResolveOneOutcomes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Outcome
	}{
		{"no domains", `{"data":{"domains":[]}}`, Unresolved},
		{"empty name", `{"data":{"domains":[{"name":""}]}}`, Unresolved},
		{"graphql error", `{"errors":[{"message":"indexing error"}]}`, Failed},
		{"malformed", `not json`, Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := subgraph(t, tt.body)
			name, outcome := tr.ResolveOne(context.Background(), addrAlice)
			assert.Equal(t, tt.want, outcome)
			assert.Empty(t, name)
		})
	}
}

func TestSubgraphResolveBatchPrefersNewest(t *testing.T) {
	tr, requests := subgraph(t, `{"data":{"domains":[
		{"name":"alice-new.eth","resolvedAddress":{"id":"0x1111111111111111111111111111111111111111"}},
		{"name":"bob.eth","resolvedAddress":{"id":"0x2222222222222222222222222222222222222222"}},
		{"name":"alice-old.eth","resolvedAddress":{"id":"0x1111111111111111111111111111111111111111"}},
		{"name":"orphan.eth","resolvedAddress":null}
	]}}`)

	names, outcome := tr.ResolveBatch(context.Background(), []string{strings.ToUpper(addrAlice[2:]), addrBob, addrCarol})
	assert.Equal(t, Resolved, outcome)
	assert.Equal(t, map[string]string{
		addrAlice: "alice-new.eth",
		addrBob:   "bob.eth",
	}, names)

	require.Len(t, requests(), 1)
	assert.Len(t, requests()[0].Variables["addresses"], 3)
}

func TestSubgraphResolveBatchEmptyInput(t *testing.T) {
	tr, requests := subgraph(t, `{"data":{"domains":[]}}`)
	names, outcome := tr.ResolveBatch(context.Background(), nil)
	assert.Equal(t, Unresolved, outcome)
	assert.Empty(t, names)
	assert.Empty(t, requests())
}

func TestSubgraphSearchPartial(t *testing.T) {
	tr, requests := subgraph(t, `{"data":{"domains":[
		{"name":"foo-indexer.eth","resolvedAddress":{"id":"0xAAAA"}},
		{"name":"foobar.eth","resolvedAddress":null}
	]}}`)

	records, outcome := tr.SearchPartial(context.Background(), "FOO")
	assert.Equal(t, Resolved, outcome)
	assert.Equal(t, []NameRecord{
		{Name: "foo-indexer.eth", ResolvedAddress: "0xaaaa"},
		{Name: "foobar.eth"},
	}, records)

	require.Len(t, requests(), 1)
	assert.Equal(t, "foo", requests()[0].Variables["search"])
	assert.EqualValues(t, DefaultSearchLimit, requests()[0].Variables["first"])
}

func TestSubgraphResolveExact(t *testing.T) {
	tr, _ := subgraph(t, `{"data":{"domains":[{"resolvedAddress":{"id":"0xABCD"}}]}}`)
	addr, outcome := tr.ResolveExact(context.Background(), "Alice.ETH")
	assert.Equal(t, Resolved, outcome)
	assert.Equal(t, "0xabcd", addr)

	tr, _ = subgraph(t, `{"data":{"domains":[{"resolvedAddress":null}]}}`)
	addr, outcome = tr.ResolveExact(context.Background(), "alice.eth")
	assert.Equal(t, Unresolved, outcome)
	assert.Empty(t, addr)
}

func TestSubgraphUnreachable(t *testing.T) {
	client := graphql.NewClient("http://127.0.0.1:1", 200*time.Millisecond, 0)
	tr := NewSubgraphTransport(client, TransportOptions{})

	_, outcome := tr.ResolveOne(context.Background(), addrAlice)
	assert.Equal(t, Failed, outcome)
	records, outcome := tr.SearchPartial(context.Background(), "foo")
	assert.Equal(t, Failed, outcome)
	assert.Nil(t, records)
}
