package domain

// DefaultRole is the label assigned to every identity at login. The gateway
// carries a single role claim; finer-grained authorization lives elsewhere.
const DefaultRole = "operator"

// User is the immutable snapshot of the provider-reported profile taken at
// login time. It is the whole content of a session: there is no server-side
// user table behind it.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}
