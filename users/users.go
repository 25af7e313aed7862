package users

// User is the authenticated account profile as the backend reports it.
// The backend owns it; the client only mirrors it alongside the session
// token.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Created  string `json:"created_at"`
}
