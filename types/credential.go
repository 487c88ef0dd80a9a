package types

// Credential is the persisted tunnel provider auth token.
type Credential struct {
	Token string `json:"token"`
}

// Valid reports whether the credential carries a token.
func (c *Credential) Valid() bool {
	return c != nil && c.Token != ""
}
