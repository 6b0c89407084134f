package actions

import "strings"

// Args is the flat set of runtime values collected from flags and prompts.
type Args struct {
	Username       string
	Password       string
	AppID          string
	Platform       string
	KeyID          string
	CollaboratorID string
	Payload        string
}

func (a Args) placeholder(name string) (string, bool) {
	switch name {
	case "app_id":
		return a.AppID, true
	case "platform":
		return a.Platform, true
	case "key_id":
		return a.KeyID, true
	case "collaborator_id":
		return a.CollaboratorID, true
	default:
		return "", false
	}
}

// HasCredentials reports whether both username and password are set.
func (a Args) HasCredentials() bool {
	return !isBlank(a.Username) && !isBlank(a.Password)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
