package ens

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Outcome tells apart "looked up, nothing found" from "could not look up".
type Outcome int

const (
	// Unresolved means the query completed and matched nothing.
	Unresolved Outcome = iota
	// Resolved means the query completed and matched.
	Resolved
	// Failed means the query could not be completed (network, timeout, bad payload).
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	DefaultBatchSize   = 100
	DefaultSearchLimit = 20

	// maxBatchResults is the largest page graph-node serves. Batch queries ask for a full
	// page so addresses owning several names cannot push others out of the result.
	maxBatchResults = 1000
)

// NameRecord is a name together with the address it resolves to, if any.
type NameRecord struct {
	Name            string `json:"name"`
	ResolvedAddress string `json:"resolvedAddress,omitempty"`
}

// Transport queries the name service. It holds no cache and never returns errors;
// every call reports an Outcome instead.
type Transport interface {
	ResolveOne(ctx context.Context, address string) (string, Outcome)
	ResolveBatch(ctx context.Context, addresses []string) (map[string]string, Outcome)
	SearchPartial(ctx context.Context, fragment string) ([]NameRecord, Outcome)
	ResolveExact(ctx context.Context, name string) (string, Outcome)
}

// Querier runs a GraphQL query and decodes its data into out. *graphql.Client implements it.
type Querier interface {
	Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error
}

const (
	resolveAddressQuery = `
query ResolveAddress($address: String!) {
  domains(where: { resolvedAddress: $address }, first: 1, orderBy: createdAt, orderDirection: desc) {
    name
  }
}`

	resolveAddressesQuery = `
query ResolveAddresses($addresses: [String!]!, $first: Int!) {
  domains(where: { resolvedAddress_in: $addresses }, first: $first, orderBy: createdAt, orderDirection: desc) {
    name
    resolvedAddress { id }
  }
}`

	searchQuery = `
query SearchENS($search: String!, $first: Int!) {
  domains(where: { name_contains: $search }, first: $first, orderBy: createdAt, orderDirection: desc) {
    name
    resolvedAddress { id }
  }
}`

	resolveNameQuery = `
query ResolveName($name: String!) {
  domains(where: { name: $name }, first: 1) {
    resolvedAddress { id }
  }
}`
)

type domain struct {
	Name            string `json:"name"`
	ResolvedAddress *struct {
		ID string `json:"id"`
	} `json:"resolvedAddress"`
}

func (d domain) address() string {
	if d.ResolvedAddress == nil {
		return ""
	}
	return strings.ToLower(d.ResolvedAddress.ID)
}

type domainsData struct {
	Domains []domain `json:"domains"`
}

// TransportOptions configure a SubgraphTransport.
type TransportOptions struct {
	// SearchLimit caps SearchPartial results. Defaults to DefaultSearchLimit.
	SearchLimit int
	// Logger receives debug logs for failed queries. nil disables logging.
	Logger *zap.Logger
}

// SubgraphTransport resolves names against an ENS subgraph.
type SubgraphTransport struct {
	client      Querier
	searchLimit int
	log         *zap.Logger
}

func NewSubgraphTransport(client Querier, opts TransportOptions) *SubgraphTransport {
	t := &SubgraphTransport{
		client:      client,
		searchLimit: opts.SearchLimit,
		log:         opts.Logger,
	}
	if t.searchLimit <= 0 {
		t.searchLimit = DefaultSearchLimit
	}
	if t.log == nil {
		t.log = nopLogger
	}
	return t
}

func (t *SubgraphTransport) domains(ctx context.Context, op, query string, vars map[string]interface{}) ([]domain, Outcome) {
	var data domainsData
	if err := t.client.Query(ctx, query, vars, &data); err != nil {
		t.log.Debug("ens query failed", zap.String("op", op), zap.Error(err))
		return nil, Failed
	}
	if len(data.Domains) == 0 {
		return nil, Unresolved
	}
	return data.Domains, Resolved
}

// ResolveOne returns the newest name whose resolved address is address.
func (t *SubgraphTransport) ResolveOne(ctx context.Context, address string) (string, Outcome) {
	domains, outcome := t.domains(ctx, "resolve_address", resolveAddressQuery, map[string]interface{}{
		"address": strings.ToLower(address),
	})
	if outcome != Resolved || domains[0].Name == "" {
		if outcome == Resolved {
			outcome = Unresolved
		}
		return "", outcome
	}
	return domains[0].Name, Resolved
}

// ResolveBatch resolves addresses in one round-trip. Addresses missing from the
// returned map have no name. When several names point at one address the newest wins.
func (t *SubgraphTransport) ResolveBatch(ctx context.Context, addresses []string) (map[string]string, Outcome) {
	if len(addresses) == 0 {
		return map[string]string{}, Unresolved
	}
	lower := make([]string, len(addresses))
	for i, a := range addresses {
		lower[i] = strings.ToLower(a)
	}

	domains, outcome := t.domains(ctx, "resolve_addresses", resolveAddressesQuery, map[string]interface{}{
		"addresses": lower,
		"first":     maxBatchResults,
	})
	names := make(map[string]string, len(domains))
	for _, d := range domains {
		addr := d.address()
		if addr == "" || d.Name == "" {
			continue
		}
		if _, seen := names[addr]; !seen {
			names[addr] = d.Name
		}
	}
	if outcome == Resolved && len(names) == 0 {
		outcome = Unresolved
	}
	return names, outcome
}

// SearchPartial returns names containing fragment, newest first.
func (t *SubgraphTransport) SearchPartial(ctx context.Context, fragment string) ([]NameRecord, Outcome) {
	domains, outcome := t.domains(ctx, "search", searchQuery, map[string]interface{}{
		"search": strings.ToLower(fragment),
		"first":  t.searchLimit,
	})
	if outcome != Resolved {
		return nil, outcome
	}
	records := make([]NameRecord, 0, len(domains))
	for _, d := range domains {
		records = append(records, NameRecord{Name: d.Name, ResolvedAddress: d.address()})
	}
	return records, Resolved
}

// ResolveExact returns the address name resolves to.
func (t *SubgraphTransport) ResolveExact(ctx context.Context, name string) (string, Outcome) {
	domains, outcome := t.domains(ctx, "resolve_name", resolveNameQuery, map[string]interface{}{
		"name": strings.ToLower(name),
	})
	if outcome != Resolved {
		return "", outcome
	}
	if addr := domains[0].address(); addr != "" {
		return addr, Resolved
	}
	return "", Unresolved
}
