// Package zotero defines the Zotero export vocabulary: the namespace the
// mapper expands bare field names against, the well-known entity classes,
// and the default API and web endpoints.
package zotero

// DefaultNamespace is the Zotero export vocabulary namespace. Configurable
// per deployment via the context block; this is the upstream default.
const DefaultNamespace = "http://www.zotero.org/namespaces/export#"

// DefaultAPIURL is the Zotero Web API root.
const DefaultAPIURL = "https://api.zotero.org/"

// DefaultBaseURL is the public web root used to mint library graph IRIs.
const DefaultBaseURL = "https://www.zotero.org/"

// Core classes minted under the export namespace. Item types reported by
// the API (book, journalArticle, ...) become subclasses of ClassItem when
// the schema ontology is loaded.
const (
	ClassItem        = "item"
	ClassCollection  = "collection"
	ClassLibrary     = "library"
	ClassTag         = "tag"
	ClassPerson      = "person"
	ClassCreatorRole = "creatorRole"
)

// Field names with fixed structural meaning in API records.
const (
	FieldKey              = "key"
	FieldItemType         = "itemType"
	FieldName             = "name"
	FieldTags             = "tags"
	FieldCreators         = "creators"
	FieldCollections      = "collections"
	FieldParentItem       = "parentItem"
	FieldParentCollection = "parentCollection"
	FieldTitle            = "title"
	FieldDate             = "date"
	FieldNote             = "note"
)

// Identity-role segments used when minting graph-local IRIs. Items and
// collections follow the Zotero web URL layout so minted IRIs resolve
// against the real library where one exists.
const (
	RoleItem       = "items"
	RoleCollection = "collections"
	RoleTag        = "tags"
	RolePerson     = "persons"
)
