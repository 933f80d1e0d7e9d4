// Package config provides configuration loading and mapping-rule resolution
// for the Zotero RDF server. A deployment is described by a server block,
// a context block (vocabulary and endpoint namespaces), a defaults block and
// one entry per source library; the resolver merges defaults into each
// library before anything downstream sees it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/vocabulary/zotero"
)

// ErrInvalidRules marks a library whose mapping configuration cannot be
// applied. Rule errors fail the library eagerly at startup rather than
// partially applying.
var ErrInvalidRules = errors.New("invalid mapping rules")

// Config is the complete server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Context   Context   `yaml:"context"`
	Defaults  Defaults  `yaml:"defaults"`
	Libraries []Library `yaml:"libraries"`
}

// Server holds process-level settings.
type Server struct {
	// Listen is the HTTP listen address (default ":8000").
	Listen string `yaml:"listen"`
	// RefreshInterval is the default wall-clock interval between refreshes.
	// Zero means refresh once at startup only.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// RefreshTimeout bounds one library refresh; an overrun counts as failed.
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
	// StartupDelay postpones the initial load, giving an external store
	// engine time to come up.
	StartupDelay time.Duration `yaml:"delay"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	StoreDirectory  string `yaml:"store_directory"`
	ExportDirectory string `yaml:"export_directory"`
	ImportDirectory string `yaml:"import_directory"`
	BackupDirectory string `yaml:"backup_directory"`

	// StoreURL points at an external store engine's HTTP endpoint. Empty
	// selects the in-process memory store.
	StoreURL string `yaml:"store_url"`

	// NATSURL enables the optional event bus when non-empty.
	NATSURL string `yaml:"nats_url"`

	// WatchImports re-triggers manual-import libraries when files under
	// the import directory change.
	WatchImports bool `yaml:"watch_imports"`
}

// Context configures the namespaces shared by every library.
type Context struct {
	// Vocab is the default vocabulary namespace bare field names expand
	// against.
	Vocab string `yaml:"vocab"`
	// APIURL is the source API root.
	APIURL string `yaml:"api_url"`
	// BaseURL is the web root used to mint library graph IRIs.
	BaseURL string `yaml:"base_url"`
	// Schema optionally points at the source's schema document; when set,
	// the refresh loads it as an OWL ontology graph.
	Schema string `yaml:"schema"`
}

// Defaults is the library defaults block plus its merge mode.
type Defaults struct {
	// Mode controls how defaults combine with per-library values:
	// "default" (library wins wherever it specifies anything), "override"
	// (a library list replaces the default wholesale when specified at
	// all), or "merge" (lists are unioned, deduplicated).
	Mode    string  `yaml:"mode"`
	Library Library `yaml:",inline"`
}

// Library describes one configured source library.
type Library struct {
	Name            string            `yaml:"name"`
	LoadMode        string            `yaml:"load_mode"` // json | rdf | manual_import
	LibraryType     string            `yaml:"library_type"`
	LibraryID       string            `yaml:"library_id"`
	APIKey          string            `yaml:"api_key"`
	RDFExportFormat string            `yaml:"rdf_export_format"`
	APIQueryParams  map[string]string `yaml:"api_query_params"`

	// BaseURI overrides the minted graph IRI; by invariant one library maps
	// to exactly one named graph, identified by this value.
	BaseURI string `yaml:"base_uri"`
	// KnowledgeBaseGraph names the graph that receives shared-entity
	// triples. It doubles as the identity namespace for shared IRIs.
	KnowledgeBaseGraph string `yaml:"knowledge_base_graph"`

	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LoadFrom        string        `yaml:"load_from"`
	SaveTo          string        `yaml:"save_to"`

	Map   MapRules    `yaml:"map"`
	Notes NotesParser `yaml:"notes_parser"`
}

// MapRules is a library's raw mapping rule block, written as data in YAML
// and compiled once per library into a mapping.RuleSet.
type MapRules struct {
	// White lists the only plain fields emitted when non-empty. Structured
	// fields (RDFMapping and the built-ins) bypass the allow-list.
	White []string `yaml:"white"`
	// Black suppresses fields; consulted only when White is empty.
	Black []string `yaml:"black"`
	// RDFMapping names fields whose string values become IRI-referenced
	// shared entities instead of literals.
	RDFMapping []string `yaml:"rdf_mapping"`
	// ItemType derives rdf:type for items: "_Token" is a constant type,
	// anything else names a field to read the type from.
	ItemType []string `yaml:"item_type"`
	// CollectionType is ItemType's counterpart for collections.
	CollectionType []string `yaml:"collection_type"`
	// Additional triples attached to every item and collection.
	Additional []AdditionalTriple `yaml:"additional"`
	// NamedLibrary, when set, is the predicate back-linking each subject to
	// the library node.
	NamedLibrary string `yaml:"named_library"`
	// Fuzzy is the knowledge-base label similarity threshold (0-100).
	Fuzzy *int `yaml:"fuzzy"`
	// KnowledgeBase toggles the shared-entity graph for this library.
	KnowledgeBase *bool `yaml:"knowledge_base"`
}

// AdditionalTriple attaches one static or field-derived triple to every
// mapped subject. A Value starting with "_" is a constant; otherwise it
// names a record field.
type AdditionalTriple struct {
	Property  string `yaml:"property"`
	Value     string `yaml:"value"`
	Prefix    string `yaml:"prefix"`
	NamedNode bool   `yaml:"named_node"`
}

// NotesParser configures the HTML note boundary for a library.
type NotesParser struct {
	Auto      bool   `yaml:"auto"`
	Predicate string `yaml:"predicate"`
}

// DefaultConfig returns a Config with the upstream defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Listen:          ":8000",
			RefreshInterval: 0,
			RefreshTimeout:  10 * time.Minute,
			LogLevel:        "info",
			StoreDirectory:  "./data",
			ExportDirectory: "./exports",
			ImportDirectory: "./import",
			BackupDirectory: "./backup",
		},
		Context: Context{
			Vocab:   zotero.DefaultNamespace,
			APIURL:  zotero.DefaultAPIURL,
			BaseURL: zotero.DefaultBaseURL,
		},
	}
}

// GraphIRI returns the named graph IRI for the library: the base_uri
// override when present, otherwise the library's web URL under base.
func (l Library) GraphIRI(ctx Context) string {
	if l.BaseURI != "" {
		return strings.TrimRight(l.BaseURI, "/#")
	}
	base := strings.TrimRight(ctx.BaseURL, "/")
	return fmt.Sprintf("%s/%s/%s", base, l.LibraryType, l.LibraryID)
}

// APIBase returns the library's API root, e.g. ".../groups/12345".
func (l Library) APIBase(ctx Context) string {
	return strings.TrimRight(ctx.APIURL, "/") + "/" + l.LibraryType + "/" + l.LibraryID
}

// IdentityNamespace returns the namespace shared-entity IRIs are minted
// under: the knowledge-base graph when configured, else the library graph.
func (l Library) IdentityNamespace(ctx Context) string {
	if l.KnowledgeBaseGraph != "" {
		return strings.TrimRight(l.KnowledgeBaseGraph, "/#")
	}
	return l.GraphIRI(ctx)
}

// KnowledgeBaseEnabled reports whether this library routes shared entities
// into a separate knowledge-base graph.
func (l Library) KnowledgeBaseEnabled() bool {
	if l.Map.KnowledgeBase != nil {
		return *l.Map.KnowledgeBase
	}
	return l.KnowledgeBaseGraph != ""
}

// FuzzyThreshold returns the configured similarity threshold, default 90.
func (l Library) FuzzyThreshold() int {
	if l.Map.Fuzzy != nil {
		return *l.Map.Fuzzy
	}
	return 90
}

// Interval returns the effective refresh interval for this library.
func (l Library) Interval(srv Server) time.Duration {
	if l.RefreshInterval > 0 {
		return l.RefreshInterval
	}
	return srv.RefreshInterval
}

// Validate checks the whole configuration; library rule problems are
// wrapped in ErrInvalidRules.
func (c *Config) Validate() error {
	if c.Context.Vocab == "" || !rdf.IsAbsoluteIRI(c.Context.Vocab) {
		return fmt.Errorf("context.vocab must be an absolute IRI, got %q", c.Context.Vocab)
	}
	switch c.Defaults.Mode {
	case "", "default", "override", "merge":
	default:
		return fmt.Errorf("%w: defaults.mode %q", ErrInvalidRules, c.Defaults.Mode)
	}
	seen := make(map[string]bool, len(c.Libraries))
	graphs := make(map[string]string, len(c.Libraries))
	for i := range c.Libraries {
		lib := &c.Libraries[i]
		if err := lib.validate(c.Context); err != nil {
			return fmt.Errorf("library %q: %w", lib.Name, err)
		}
		if seen[lib.Name] {
			return fmt.Errorf("duplicate library name %q", lib.Name)
		}
		seen[lib.Name] = true
		g := lib.GraphIRI(c.Context)
		if other, ok := graphs[g]; ok {
			return fmt.Errorf("libraries %q and %q map to the same graph %s", other, lib.Name, g)
		}
		graphs[g] = lib.Name
	}
	return nil
}

func (l *Library) validate(ctx Context) error {
	if l.Name == "" {
		return errors.New("name is required")
	}
	switch l.LoadMode {
	case "", "json", "rdf", "manual_import":
	default:
		return fmt.Errorf("invalid load_mode %q", l.LoadMode)
	}
	if l.LoadMode != "manual_import" {
		switch l.LibraryType {
		case "groups", "user":
		default:
			return fmt.Errorf("invalid library_type %q", l.LibraryType)
		}
		if l.LibraryID == "" {
			return errors.New("library_id is required")
		}
	}
	if l.LoadMode == "rdf" {
		switch l.RDFExportFormat {
		case "", "rdf_zotero", "rdf_bibliontology":
		default:
			return fmt.Errorf("invalid rdf_export_format %q", l.RDFExportFormat)
		}
	}
	if !rdf.IsAbsoluteIRI(l.GraphIRI(ctx)) {
		return fmt.Errorf("graph IRI %q is not an absolute IRI", l.GraphIRI(ctx))
	}
	if l.Map.Fuzzy != nil && (*l.Map.Fuzzy < 0 || *l.Map.Fuzzy > 100) {
		return fmt.Errorf("%w: fuzzy threshold %d out of range", ErrInvalidRules, *l.Map.Fuzzy)
	}
	for _, add := range l.Map.Additional {
		if add.Property == "" || add.Value == "" {
			return fmt.Errorf("%w: additional triple needs property and value", ErrInvalidRules)
		}
	}
	return nil
}
