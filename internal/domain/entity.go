package domain

import "time"

// Rule maps an EVE Online corporation to a Discord role on one server.
// Members whose characters belong to the corporation should hold the role.
// Unique per (ServerID, RoleID).
type Rule struct {
	ID                uint   `json:"id"`
	ServerID          string `json:"serverId"`
	RoleID            string `json:"roleId"`
	CorporationID     int64  `json:"corporationId"`
	CorporationName   string `json:"corporationName"`
	CorporationTicker string `json:"corporationTicker"`
	ChannelID         string `json:"channelId,omitempty"`
	Locale            string `json:"locale,omitempty"`
}

// Registration links one Discord user to one server. Characters hang off the
// registration; removing it removes them. Unique per (ServerID, UserID).
type Registration struct {
	ID         string      `json:"id"`
	ServerID   string      `json:"serverId"`
	UserID     string      `json:"userId"`
	UserName   string      `json:"userName"`
	Characters []Character `json:"characters,omitempty"`
}

// Character is an EVE Online character registered under a server.
// CorporationID and AllianceID are a cache of the last external lookup and
// go stale between reconciliation runs.
type Character struct {
	CharacterID    int64     `json:"characterId"`
	CharacterName  string    `json:"characterName"`
	ServerID       string    `json:"serverId"`
	RegistrationID string    `json:"registrationId"`
	CorporationID  int64     `json:"corporationId"`
	AllianceID     *int64    `json:"allianceId,omitempty"`
	RefreshedAt    time.Time `json:"refreshedAt"`
}

// AuthAttempt is a transient, single-use PKCE handshake record correlating a
// browser authorization callback with the chat interaction that started it.
// State is the sole lookup key for an unauthenticated callback and must be
// unguessable.
type AuthAttempt struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"-"`
	ServerID     string    `json:"serverId"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	Locale       string    `json:"locale,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the attempt is past its TTL at the given instant.
func (a AuthAttempt) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// Member is an entry of the membership directory, observed live at
// reconciliation time.
type Member struct {
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the member currently holds the role.
func (m Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
