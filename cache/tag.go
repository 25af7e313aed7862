package cache

import "strconv"

// ListID is the sentinel tag id covering every entry of a type, as
// opposed to a single entity id.
const ListID = "LIST"

// Tag references the entities a cache entry holds. A mutation declares
// the tags it invalidates; the router intersects them with the tags each
// entry provides.
type Tag struct {
	Type string
	ID   string
}

// ListTag returns the tag covering all entries of the given type.
func ListTag(entityType string) Tag {
	return Tag{Type: entityType, ID: ListID}
}

// IDTag returns the tag for a single entity.
func IDTag(entityType string, id int) Tag {
	return Tag{Type: entityType, ID: strconv.Itoa(id)}
}

// TypeTag returns the tag for an entity type with no id, used for tag
// families like Auth where no per-entity granularity exists.
func TypeTag(entityType string) Tag {
	return Tag{Type: entityType}
}

// matches reports whether an invalidated tag hits an entry carrying the
// given provided tags. A {type, LIST} invalidation matches every entry of
// that type. A {type, id} invalidation matches entries providing exactly
// that id, which for list entries (providing one id tag per element)
// invalidates the whole list rather than patching it.
func matches(provided []Tag, invalidated Tag) bool {
	for _, p := range provided {
		if p.Type != invalidated.Type {
			continue
		}
		if invalidated.ID == ListID || p.ID == invalidated.ID || p.ID == "" || invalidated.ID == "" {
			return true
		}
	}
	return false
}
