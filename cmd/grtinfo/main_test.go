package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/grtinfo/internal/config"
	"github.com/dmagro/grtinfo/internal/ens"
)

const alice = "0x1111111111111111111111111111111111111111"

func setupHome(t *testing.T, ensURL string) string {
	t.Helper()
	home := t.TempDir()
	homedir.DisableCache = true
	t.Setenv("HOME", home)
	t.Setenv(config.EnvNetworkSubgraphURL, "")
	t.Setenv(config.EnvENSSubgraphURL, ensURL)
	return home
}

func fakeENS(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "ResolveAddress(") {
			_, _ = w.Write([]byte(`{"data":{"domains":[{"name":"alice.eth"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"domains":[]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(os.Stderr)
	return cmd.Execute()
}

func TestResolveCommandWritesCache(t *testing.T) {
	srv, calls := fakeENS(t)
	home := setupHome(t, srv.URL)

	require.NoError(t, run(t, "ens", "resolve", alice, "--json"))
	require.NoError(t, run(t, "ens", "resolve", alice, "--json"))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls), "second run is served from the cache file")

	data, err := os.ReadFile(filepath.Join(home, ".grtinfo", "ens_cache.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alice.eth"`)

	require.NoError(t, run(t, "cache", "clear"))
	_, err = os.Stat(filepath.Join(home, ".grtinfo", "ens_cache.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestNoCacheFlagSkipsDisk(t *testing.T) {
	srv, calls := fakeENS(t)
	home := setupHome(t, srv.URL)

	require.NoError(t, run(t, "ens", "resolve", alice, "--no-cache", "--json"))
	require.NoError(t, run(t, "ens", "resolve", alice, "--no-cache", "--json"))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))

	_, err := os.Stat(filepath.Join(home, ".grtinfo", "ens_cache.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestResolveRejectsBadAddress(t *testing.T) {
	srv, calls := fakeENS(t)
	setupHome(t, srv.URL)

	assert.Error(t, run(t, "ens", "resolve", "0x1234"))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestMissingENSURL(t *testing.T) {
	setupHome(t, "")
	assert.Error(t, run(t, "ens", "name", "ellipfra"))
}

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		noCache bool
		want    interface{}
	}{
		{config.BackendJSON, false, &ens.JSONStore{}},
		{config.BackendBolt, false, &ens.BoltStore{}},
		{config.BackendMemory, false, &ens.MemStore{}},
		{config.BackendBolt, true, &ens.MemStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &config.Config{ENS: config.ENS{
				CacheBackend: tt.backend,
				CachePath:    filepath.Join(dir, tt.backend+".cache"),
			}}
			s, err := openStore(cfg, tt.noCache)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}
