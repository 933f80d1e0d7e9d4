package config

// Rule resolution: the defaults block is folded into every library entry
// before the mapping layer compiles it. List fields follow the configured
// merge mode; scalar fields always prefer the library's own value.
//
// An empty list in a library block means "not specified", never "restrict
// to nothing" — an operator who wants to restrict to nothing cannot say so
// with an empty list, and suppressing defaults silently would make the two
// cases indistinguishable.

// ResolveLibraries returns the libraries with defaults applied. The input
// config is not modified.
func (c *Config) ResolveLibraries() []Library {
	mode := c.Defaults.Mode
	if mode == "" {
		mode = "default"
	}
	out := make([]Library, len(c.Libraries))
	for i, lib := range c.Libraries {
		out[i] = mergeLibrary(c.Defaults.Library, lib, mode)
	}
	return out
}

func mergeLibrary(def, lib Library, mode string) Library {
	merged := lib

	merged.LoadMode = pick(lib.LoadMode, def.LoadMode)
	merged.LibraryType = pick(lib.LibraryType, def.LibraryType)
	merged.APIKey = pick(lib.APIKey, def.APIKey)
	merged.RDFExportFormat = pick(lib.RDFExportFormat, def.RDFExportFormat)
	merged.BaseURI = pick(lib.BaseURI, def.BaseURI)
	merged.KnowledgeBaseGraph = pick(lib.KnowledgeBaseGraph, def.KnowledgeBaseGraph)
	merged.LoadFrom = pick(lib.LoadFrom, def.LoadFrom)
	merged.SaveTo = pick(lib.SaveTo, def.SaveTo)
	if lib.RefreshInterval == 0 {
		merged.RefreshInterval = def.RefreshInterval
	}
	if lib.APIQueryParams == nil {
		merged.APIQueryParams = def.APIQueryParams
	}
	if !lib.Notes.Auto && lib.Notes.Predicate == "" {
		merged.Notes = def.Notes
	}

	merged.Map = mergeRules(def.Map, lib.Map, mode)
	return merged
}

func mergeRules(def, lib MapRules, mode string) MapRules {
	merged := lib

	merged.White = mergeList(def.White, lib.White, mode)
	merged.Black = mergeList(def.Black, lib.Black, mode)
	merged.RDFMapping = mergeList(def.RDFMapping, lib.RDFMapping, mode)
	merged.ItemType = mergeList(def.ItemType, lib.ItemType, mode)
	merged.CollectionType = mergeList(def.CollectionType, lib.CollectionType, mode)

	if merged.NamedLibrary == "" {
		merged.NamedLibrary = def.NamedLibrary
	}
	if merged.Fuzzy == nil {
		merged.Fuzzy = def.Fuzzy
	}
	if merged.KnowledgeBase == nil {
		merged.KnowledgeBase = def.KnowledgeBase
	}

	switch {
	case mode == "merge":
		merged.Additional = mergeAdditional(def.Additional, lib.Additional)
	case len(lib.Additional) == 0:
		merged.Additional = def.Additional
	}
	return merged
}

// mergeList applies the merge mode to one list field. In override (and
// default) mode a specified library list replaces the default wholesale; in
// merge mode the two are unioned. Order of first appearance is kept so the
// result is deterministic even though the policy is order-irrelevant.
func mergeList(def, lib []string, mode string) []string {
	if mode == "merge" {
		return union(def, lib)
	}
	if len(lib) > 0 {
		return lib
	}
	return def
}

func union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func mergeAdditional(def, lib []AdditionalTriple) []AdditionalTriple {
	if len(def) == 0 {
		return lib
	}
	type key struct{ p, v string }
	seen := make(map[key]bool, len(def)+len(lib))
	out := make([]AdditionalTriple, 0, len(def)+len(lib))
	for _, a := range append(append([]AdditionalTriple{}, def...), lib...) {
		k := key{a.Property, a.Value}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}

func pick(own, fallback string) string {
	if own != "" {
		return own
	}
	return fallback
}
