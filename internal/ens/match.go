package ens

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ResolveName returns the address a name points to. It tries, in order:
//
//  1. an exact match on name
//  2. an exact match on name + NameSuffix, if name lacks the suffix
//  3. a substring search, see pickCandidate
//
// A failed query at any step counts as no match and the next step runs.
func (r *Resolver) ResolveName(ctx context.Context, name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}

	if addr, outcome := r.transport.ResolveExact(ctx, name); outcome == Resolved {
		return addr, true
	}

	if !strings.HasSuffix(name, NameSuffix) {
		if addr, outcome := r.transport.ResolveExact(ctx, name+NameSuffix); outcome == Resolved {
			return addr, true
		}
	}

	records, outcome := r.transport.SearchPartial(ctx, name)
	if outcome == Failed {
		r.log.Debug("name search failed", zap.String("name", name))
	}
	return pickCandidate(name, records)
}

// pickCandidate chooses among search results for fragment, which are newest first.
// A name continuing fragment with '-' or '.' beats one that merely starts with
// fragment; within a tier the first result wins. If nothing starts with fragment
// the newest result is used. Records without an address are skipped.
func pickCandidate(fragment string, records []NameRecord) (string, bool) {
	var prefixed string
	for _, rec := range records {
		if rec.ResolvedAddress == "" {
			continue
		}
		n := strings.ToLower(rec.Name)
		if strings.HasPrefix(n, fragment+"-") || strings.HasPrefix(n, fragment+".") {
			return rec.ResolvedAddress, true
		}
		if prefixed == "" && strings.HasPrefix(n, fragment) {
			prefixed = rec.ResolvedAddress
		}
	}
	if prefixed != "" {
		return prefixed, true
	}
	if len(records) > 0 && records[0].ResolvedAddress != "" {
		return records[0].ResolvedAddress, true
	}
	return "", false
}
