package models

import "time"

type Rule struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	ServerID          string `gorm:"uniqueIndex:idx_rules_server_role;index"`
	RoleID            string `gorm:"uniqueIndex:idx_rules_server_role"`
	CorporationID     int64
	CorporationName   string
	CorporationTicker string
	ChannelID         string
	Locale            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Registration struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	ServerID   string `gorm:"uniqueIndex:idx_registrations_server_user;index"`
	UserID     string `gorm:"uniqueIndex:idx_registrations_server_user"`
	UserName   string
	Characters []Character `gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Character struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	CharacterID    int64  `gorm:"uniqueIndex:idx_characters_server_character"`
	CharacterName  string
	ServerID       string `gorm:"uniqueIndex:idx_characters_server_character;index"`
	RegistrationID string `gorm:"type:uuid;index"`
	CorporationID  int64
	AllianceID     *int64
	RefreshedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type AuthAttempt struct {
	State        string `gorm:"primaryKey"`
	CodeVerifier string
	ServerID     string
	UserID       string
	UserName     string
	Locale       string
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"index"`
}
