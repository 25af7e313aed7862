package clients

// Client is a managed client record: an account trading on the platform
// with its exchange API credentials. The backend owns the record; the
// cache mirrors it read-only. Edit drafts live in the UI and reach the
// record only through a mutation followed by a refetch.
type Client struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
	APIKey   string `json:"api_key"`
	APIToken string `json:"api_token"`
	Created  string `json:"created_at"`
	Updated  string `json:"updated_at"`
}

// CreateClientRequest is the payload for creating a client record.
type CreateClientRequest struct {
	FullName string `json:"full_name"`
	APIKey   string `json:"api_key"`
	APIToken string `json:"api_token"`
}

// UpdateClientRequest replaces a client record's mutable fields.
type UpdateClientRequest struct {
	ID       int    `json:"-"`
	FullName string `json:"full_name"`
	APIKey   string `json:"api_key"`
	APIToken string `json:"api_token"`
}

// DeleteClientResponse is the backend's acknowledgement of a deletion.
type DeleteClientResponse struct {
	Success bool `json:"success"`
	ID      int  `json:"id"`
}
