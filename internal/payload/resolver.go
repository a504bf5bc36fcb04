package payload

// DefaultCollectionPlaceholder is the collection named by every operation
// until ids can be resolved to their real collection.
const DefaultCollectionPlaceholder = "TODO_set"

// UnresolvedCollectionCaveat is shown next to any rendered payload.
const UnresolvedCollectionCaveat = "The \"update\" collection name is a placeholder; " +
	"the collection each id belongs to is not resolved yet."

// CollectionResolver names the collection a record id belongs to.
// A real implementation needs a schema or metadata lookup.
type CollectionResolver interface {
	CollectionFor(id string) string
}

// PlaceholderResolver returns the same collection name for every id.
type PlaceholderResolver struct {
	// Name overrides DefaultCollectionPlaceholder when non-empty.
	Name string
}

// CollectionFor implements CollectionResolver.
func (p PlaceholderResolver) CollectionFor(string) string {
	if p.Name != "" {
		return p.Name
	}
	return DefaultCollectionPlaceholder
}

// AppendOnlyInsertCaveat is shown when a batch contains insert-family rows.
const AppendOnlyInsertCaveat = "Insert actions append unconditionally; " +
	"items already present in the list are not skipped."
