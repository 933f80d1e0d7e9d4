// Package identity mints stable IRIs for items, collections, creators and
// tags. Graph-local identities are derived from the library's base IRI and
// the source key; knowledge-base identities are derived from a configured
// namespace and a deterministic hash of the normalized label, so repeated
// runs and different libraries converge on the same node without any shared
// mutable registry.
package identity

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ch-sander/zotero-rdf-server/rdf"
)

// Resolver computes IRIs for one library's entities.
type Resolver struct {
	base      string
	namespace string
	nsUUID    uuid.UUID
	threshold int

	mu   sync.Mutex
	seen map[string][]seenLabel // role -> labels in first-seen order
}

type seenLabel struct {
	canonical  string // original surface form of the first sighting
	normalized string
}

// NewResolver creates a resolver. base is the library's graph IRI,
// namespace the shared-identity namespace (usually the knowledge-base
// graph IRI), threshold the fuzzy similarity cut-off in percent; 100
// disables fuzzy merging.
func NewResolver(base, namespace string, threshold int) *Resolver {
	return &Resolver{
		base:      strings.TrimRight(base, "/#"),
		namespace: strings.TrimRight(namespace, "/#"),
		nsUUID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimRight(namespace, "/#"))),
		threshold: threshold,
		seen:      make(map[string][]seenLabel),
	}
}

// Resolve returns the graph-local IRI for a source key in the given role
// (e.g. "items", "collections"). Deterministic and idempotent: no state is
// consulted, the IRI is a pure function of base, role and key.
func (r *Resolver) Resolve(role, key string) rdf.IRI {
	return rdf.IRI(r.base + "/" + role + "/" + rdf.EncodeSegment(key))
}

// ResolveShared returns the knowledge-base IRI for a labelled entity
// (tag, person, place, ...) plus the canonical label it resolved to. The
// IRI is the UUIDv5 of the canonical normalized label under the resolver's
// namespace, so exact-label convergence holds across libraries and process
// restarts regardless of call order. Fuzzy matching below 100 additionally
// folds near-duplicate labels seen by this resolver into the earliest-seen
// canonical form.
func (r *Resolver) ResolveShared(role, label string) (rdf.IRI, string) {
	canonical := label
	norm := NormalizeLabel(label)

	if r.threshold < 100 {
		canonical, norm = r.match(role, label, norm)
	}

	id := uuid.NewSHA1(r.nsUUID, []byte(role+"\x00"+norm))
	return rdf.IRI(r.namespace + "/" + role + "/" + id.String()), canonical
}

// match finds the best previously seen label of the same role at or above
// the threshold. Candidates are scanned in first-seen order and only a
// strictly better score displaces the current best, so the earliest-seen
// label wins score ties.
func (r *Resolver) match(role, label, norm string) (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := -1
	bestIdx := -1
	for i, s := range r.seen[role] {
		score := Similarity(norm, s.normalized)
		if score >= r.threshold && score > best {
			best = score
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		s := r.seen[role][bestIdx]
		return s.canonical, s.normalized
	}
	r.seen[role] = append(r.seen[role], seenLabel{canonical: label, normalized: norm})
	return label, norm
}

// NormalizeLabel prepares a label for identity comparison: trimmed,
// whitespace-collapsed, casefolded.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
