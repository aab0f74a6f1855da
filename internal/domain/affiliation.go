package domain

// AffiliationRecord is a character's current corporation (and optionally
// alliance) membership as reported by the external identity source.
type AffiliationRecord struct {
	CharacterID   int64  `json:"characterId"`
	Name          string `json:"name"`
	CorporationID int64  `json:"corporationId"`
	AllianceID    *int64 `json:"allianceId,omitempty"`
}

// CorporationRecord describes a corporation on the external identity source.
type CorporationRecord struct {
	CorporationID int64  `json:"corporationId"`
	Name          string `json:"name"`
	Ticker        string `json:"ticker"`
	AllianceID    *int64 `json:"allianceId,omitempty"`
	MemberCount   int    `json:"memberCount"`
}

// AllianceRecord describes an alliance on the external identity source.
type AllianceRecord struct {
	AllianceID int64  `json:"allianceId"`
	Name       string `json:"name"`
	Ticker     string `json:"ticker"`
}
