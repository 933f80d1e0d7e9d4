// Package schema turns the Zotero schema document into an OWL ontology
// graph: item types become classes, fields become datatype properties with
// union domains, creator types become role classes. The ontology is loaded
// into its own named graph so clients can interpret the mapped data.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultURL is the published Zotero schema endpoint.
const DefaultURL = "https://api.zotero.org/schema"

// labelLocale picks the locale used for rdfs:label.
const labelLocale = "en-US"

// Schema is the decoded Zotero schema document, reduced to the parts the
// ontology needs.
type Schema struct {
	Version   int               `json:"version"`
	ItemTypes []ItemType        `json:"itemTypes"`
	Locales   map[string]Locale `json:"locales"`
}

// ItemType describes one item type with its fields and creator roles.
type ItemType struct {
	ItemType     string        `json:"itemType"`
	Fields       []Field       `json:"fields"`
	CreatorTypes []CreatorType `json:"creatorTypes"`
}

// Field is one field of an item type; BaseField names the generic field
// this one specializes (seriesNumber → number).
type Field struct {
	Field     string `json:"field"`
	BaseField string `json:"baseField"`
}

// CreatorType is one creator role of an item type.
type CreatorType struct {
	CreatorType string `json:"creatorType"`
	Primary     bool   `json:"primary"`
}

// Locale carries the localized display names.
type Locale struct {
	ItemTypes    map[string]string `json:"itemTypes"`
	Fields       map[string]string `json:"fields"`
	CreatorTypes map[string]string `json:"creatorTypes"`
}

// Load decodes a schema document.
func Load(r io.Reader) (*Schema, error) {
	var s Schema
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if len(s.ItemTypes) == 0 {
		return nil, fmt.Errorf("schema has no item types")
	}
	return &s, nil
}

// Fetch retrieves and decodes the schema from url; empty url means the
// published endpoint.
func Fetch(ctx context.Context, url string) (*Schema, error) {
	if url == "" {
		url = DefaultURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching schema: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching schema: %s", resp.Status)
	}
	return Load(resp.Body)
}

// label returns the localized display name, falling back to the raw name.
func (s *Schema) label(kind, name string) string {
	loc, ok := s.Locales[labelLocale]
	if !ok {
		return name
	}
	var m map[string]string
	switch kind {
	case "itemType":
		m = loc.ItemTypes
	case "field":
		m = loc.Fields
	case "creatorType":
		m = loc.CreatorTypes
	}
	if l, ok := m[name]; ok && l != "" {
		return l
	}
	return name
}
