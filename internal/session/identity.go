package session

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Identity is the authenticated user for a session, read once from the
// credentials file and passed explicitly to everything that needs it.
// Token issuance itself is the platform's concern; hubchat only carries
// the token on API requests.
type Identity struct {
	UserID      string `toml:"user_id"`
	DisplayName string `toml:"display_name"`
	Token       string `toml:"token"`
}

// LoadIdentity reads the credentials file for a session.
func LoadIdentity(path string) (*Identity, error) {
	var id Identity
	if _, err := toml.DecodeFile(path, &id); err != nil {
		return nil, err
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("credentials at %s missing user_id", path)
	}
	if id.DisplayName == "" {
		id.DisplayName = id.UserID
	}
	return &id, nil
}
