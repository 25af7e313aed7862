package session

// Storage keys for the two persisted session values. They are always
// written together and cleared together; a restore that finds only one
// treats the pair as corrupt and purges both.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Storage is the durable key-value store backing the session. The file
// implementation is used in production; tests use the in-memory fake.
type Storage interface {
	// Get retrieves the value for the given key. The boolean reports
	// whether the key was present.
	Get(key string) (value string, ok bool, err error)

	// Set stores the value for the given key, overwriting any previous
	// value.
	Set(key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error
}
