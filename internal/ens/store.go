package ens

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"
)

// DefaultTTL is how long a resolution stays fresh.
const DefaultTTL = 24 * time.Hour

// legacyGrace is how long entries from the untimestamped cache format stay fresh after load.
const legacyGrace = time.Hour

// Entry is one cached resolution. An empty Name records a lookup that found nothing.
type Entry struct {
	Address    string    `json:"address"`
	Name       string    `json:"name,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Negative reports whether the entry records a failed lookup.
func (e Entry) Negative() bool { return e.Name == "" }

// Store persists resolved names keyed by lowercase address.
//
// Freshness is enforced once, in Load; Get never re-checks the TTL.
// Implementations are not safe for concurrent use.
type Store interface {
	Load() error
	Get(address string) (Entry, bool)
	Put(address, name string)
	Save() error
	Entries() []Entry
	io.Closer
}

// StoreOptions configure the TTL and clock of a Store.
type StoreOptions struct {
	// TTL is the maximum age of a served entry. Defaults to DefaultTTL.
	TTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// diskEntry is the current on-disk representation of an entry.
// Timestamp is unix seconds, fractional.
type diskEntry struct {
	Name      *string `json:"name"`
	Timestamp float64 `json:"timestamp"`
}

type recordKind int

const (
	recordInvalid recordKind = iota
	recordCurrent
	recordLegacy
)

// record is one on-disk value after decoding. Legacy values carry no timestamp.
type record struct {
	kind recordKind
	name string
	at   time.Time
}

// decodeRecord accepts {"name": string|null, "timestamp": number} and the legacy
// bare string or null. Anything else is recordInvalid.
func decodeRecord(raw json.RawMessage) record {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return record{}
	}

	switch raw[0] {
	case 'n':
		if string(raw) == "null" {
			return record{kind: recordLegacy}
		}
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			return record{kind: recordLegacy, name: name}
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return record{}
		}
		rawName, hasName := fields["name"]
		rawTS, hasTS := fields["timestamp"]
		if !hasName || !hasTS {
			return record{}
		}
		var name *string
		if err := json.Unmarshal(rawName, &name); err != nil {
			return record{}
		}
		var ts float64
		if err := json.Unmarshal(rawTS, &ts); err != nil {
			return record{}
		}
		r := record{kind: recordCurrent, at: fromUnixSeconds(ts)}
		if name != nil {
			r.name = *name
		}
		return r
	}
	return record{}
}

func encodeEntry(e Entry) diskEntry {
	d := diskEntry{Timestamp: toUnixSeconds(e.ResolvedAt)}
	if !e.Negative() {
		name := e.Name
		d.Name = &name
	}
	return d
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}

// table is the in-memory mapping shared by every Store implementation.
type table struct {
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

func newTable(opts StoreOptions) table {
	t := table{
		entries: make(map[string]Entry),
		ttl:     opts.TTL,
		now:     opts.Now,
	}
	if t.ttl <= 0 {
		t.ttl = DefaultTTL
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

func (t *table) Get(address string) (Entry, bool) {
	e, ok := t.entries[strings.ToLower(address)]
	return e, ok
}

func (t *table) Put(address, name string) {
	key := strings.ToLower(address)
	t.entries[key] = Entry{Address: key, Name: name, ResolvedAt: t.now()}
}

func (t *table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (t *table) reset() {
	t.entries = make(map[string]Entry)
}

// load replaces the table with the fresh entries of raw and returns how many were kept.
func (t *table) load(raw map[string]json.RawMessage) int {
	t.reset()
	now := t.now()
	for addr, value := range raw {
		r := decodeRecord(value)
		switch r.kind {
		case recordLegacy:
			r.at = now.Add(-t.ttl + legacyGrace)
		case recordCurrent:
		default:
			continue
		}
		if now.Sub(r.at) >= t.ttl {
			continue
		}
		key := strings.ToLower(addr)
		t.entries[key] = Entry{Address: key, Name: r.name, ResolvedAt: r.at}
	}
	return len(t.entries)
}

func (t *table) document() map[string]diskEntry {
	doc := make(map[string]diskEntry, len(t.entries))
	for addr, e := range t.entries {
		doc[addr] = encodeEntry(e)
	}
	return doc
}
