package domain

// Principal captures the caller identity extracted from a bearer token.
type Principal struct {
	Subject  string
	Issuer   string
	Username string
	Email    string
	Name     string
}

// DisplayName returns the most human friendly identifier available.
func (p Principal) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Username != "":
		return p.Username
	case p.Email != "":
		return p.Email
	default:
		return p.Subject
	}
}
