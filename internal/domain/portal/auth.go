package portal

// Auth holds the credentials of one portal session.
// It is obtained once per session and never persisted.
type Auth struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
	MemberID    string `json:"member_id,omitempty"`
}

// Validate checks that the credentials can address a portal
func (a Auth) Validate() error {
	if a.Domain == "" {
		return ErrMissingDomain
	}
	if a.AccessToken == "" {
		return ErrMissingAccessToken
	}
	return nil
}
