package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerevar/corpsync/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// --- repositories ---

type mockRules struct {
	rules []domain.Rule
	saved []domain.Rule
}

func (m *mockRules) Save(ctx context.Context, rule domain.Rule) error {
	m.saved = append(m.saved, rule)
	for i := range m.rules {
		if m.rules[i].ServerID == rule.ServerID && m.rules[i].RoleID == rule.RoleID {
			m.rules[i] = rule
			return nil
		}
	}
	m.rules = append(m.rules, rule)
	return nil
}

func (m *mockRules) Find(ctx context.Context, serverID, roleID string) (*domain.Rule, error) {
	for i := range m.rules {
		if m.rules[i].ServerID == serverID && m.rules[i].RoleID == roleID {
			rule := m.rules[i]
			return &rule, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "rule"}
}

func (m *mockRules) ListByServer(ctx context.Context, serverID string) ([]domain.Rule, error) {
	var out []domain.Rule
	for _, rule := range m.rules {
		if rule.ServerID == serverID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (m *mockRules) List(ctx context.Context) ([]domain.Rule, error) {
	return append([]domain.Rule(nil), m.rules...), nil
}

func (m *mockRules) Delete(ctx context.Context, serverID, roleID string) error {
	for i := range m.rules {
		if m.rules[i].ServerID == serverID && m.rules[i].RoleID == roleID {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{Resource: "rule"}
}

type mockRegistrations struct {
	regs    []domain.Registration
	created int
	deleted [][2]string

	// When set, reads join in the linked characters the way the database
	// layer preloads them.
	characters *mockCharacters
}

func (m *mockRegistrations) withCharacters(reg domain.Registration) domain.Registration {
	if m.characters == nil {
		return reg
	}
	reg.Characters = nil
	for _, c := range m.characters.characters {
		if c.ServerID == reg.ServerID && c.RegistrationID == reg.ID {
			reg.Characters = append(reg.Characters, c)
		}
	}
	return reg
}

func (m *mockRegistrations) Create(ctx context.Context, registration *domain.Registration) error {
	m.created++
	registration.ID = fmt.Sprintf("reg-%d", m.created)
	m.regs = append(m.regs, *registration)
	return nil
}

func (m *mockRegistrations) Find(ctx context.Context, serverID, userID string) (*domain.Registration, error) {
	for i := range m.regs {
		if m.regs[i].ServerID == serverID && m.regs[i].UserID == userID {
			reg := m.withCharacters(m.regs[i])
			return &reg, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "registration"}
}

func (m *mockRegistrations) ListByServer(ctx context.Context, serverID string) ([]domain.Registration, error) {
	var out []domain.Registration
	for _, reg := range m.regs {
		if reg.ServerID == serverID {
			out = append(out, m.withCharacters(reg))
		}
	}
	return out, nil
}

func (m *mockRegistrations) Delete(ctx context.Context, serverID, userID string) error {
	m.deleted = append(m.deleted, [2]string{serverID, userID})
	for i := range m.regs {
		if m.regs[i].ServerID == serverID && m.regs[i].UserID == userID {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{Resource: "registration"}
}

type affiliationUpdate struct {
	serverID      string
	characterID   int64
	corporationID int64
}

type mockCharacters struct {
	characters []domain.Character
	upserts    []domain.Character
	updates    []affiliationUpdate
}

func (m *mockCharacters) Upsert(ctx context.Context, character domain.Character) error {
	m.upserts = append(m.upserts, character)
	m.characters = append(m.characters, character)
	return nil
}

func (m *mockCharacters) Find(ctx context.Context, serverID string, characterID int64) (*domain.Character, error) {
	for i := range m.characters {
		if m.characters[i].ServerID == serverID && m.characters[i].CharacterID == characterID {
			c := m.characters[i]
			return &c, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "character"}
}

func (m *mockCharacters) ListByServer(ctx context.Context, serverID string) ([]domain.Character, error) {
	var out []domain.Character
	for _, c := range m.characters {
		if c.ServerID == serverID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCharacters) UpdateAffiliation(ctx context.Context, serverID string, characterID int64, corporationID int64, allianceID *int64, refreshedAt time.Time) error {
	m.updates = append(m.updates, affiliationUpdate{serverID, characterID, corporationID})
	for i := range m.characters {
		if m.characters[i].ServerID == serverID && m.characters[i].CharacterID == characterID {
			m.characters[i].CorporationID = corporationID
			m.characters[i].AllianceID = allianceID
			m.characters[i].RefreshedAt = refreshedAt
		}
	}
	return nil
}

func (m *mockCharacters) Delete(ctx context.Context, serverID string, characterID int64) error {
	return nil
}

// --- external boundaries ---

type mockIdentity struct {
	characters   map[int64]domain.AffiliationRecord
	corporations map[int64]domain.CorporationRecord
}

func (m *mockIdentity) Character(ctx context.Context, id int64) (*domain.AffiliationRecord, error) {
	record, ok := m.characters[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "character"}
	}
	return &record, nil
}

func (m *mockIdentity) Corporation(ctx context.Context, id int64) (*domain.CorporationRecord, error) {
	record, ok := m.corporations[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "corporation"}
	}
	return &record, nil
}

func (m *mockIdentity) Characters(ctx context.Context, ids []int64) map[int64]domain.AffiliationRecord {
	out := make(map[int64]domain.AffiliationRecord)
	for _, id := range ids {
		if record, ok := m.characters[id]; ok {
			out[id] = record
		}
	}
	return out
}

type mockAttempts struct {
	attempt *domain.AuthAttempt
	swept   int64
}

func (m *mockAttempts) Begin(ctx context.Context, serverID, userID, userName, locale string) (*domain.AuthAttempt, error) {
	attempt := domain.AuthAttempt{
		State:        "state-1",
		CodeVerifier: "verifier-1",
		ServerID:     serverID,
		UserID:       userID,
		UserName:     userName,
		Locale:       locale,
	}
	m.attempt = &attempt
	return &attempt, nil
}

func (m *mockAttempts) Consume(ctx context.Context, state string) (*domain.AuthAttempt, error) {
	if m.attempt == nil || m.attempt.State != state {
		return nil, domain.NotFoundError{Resource: "auth attempt"}
	}
	attempt := *m.attempt
	m.attempt = nil
	return &attempt, nil
}

func (m *mockAttempts) SweepExpired(ctx context.Context) (int64, error) {
	return m.swept, nil
}

type mockHandshake struct {
	token       *domain.AccessToken
	exchangeErr error
	gotCode     string
	gotVerifier string
}

func (m *mockHandshake) AuthorizationURL(attempt domain.AuthAttempt) string {
	return "https://sso.example.com/authorize/?state=" + attempt.State
}

func (m *mockHandshake) ExchangeCode(ctx context.Context, code string, codeVerifier string) (*domain.AccessToken, error) {
	m.gotCode = code
	m.gotVerifier = codeVerifier
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return m.token, nil
}

type mockValidator struct {
	identity *domain.TokenIdentity
	err      error
}

func (m *mockValidator) Identity(ctx context.Context, accessToken string) (*domain.TokenIdentity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.identity, nil
}

// --- chat platform ---

type roleOp struct {
	serverID string
	userID   string
	roleID   string
}

type mockDirectory struct {
	deletedRoles map[string]bool
	members      map[string]*domain.Member
	failRole     string
	grants       []roleOp
	revokes      []roleOp
}

func (m *mockDirectory) RoleExists(ctx context.Context, serverID, roleID string) (bool, error) {
	return !m.deletedRoles[roleID], nil
}

func (m *mockDirectory) GetMember(ctx context.Context, serverID, userID string) (*domain.Member, error) {
	member, ok := m.members[userID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "member"}
	}
	return member, nil
}

func (m *mockDirectory) ListMembers(ctx context.Context, serverID string) ([]domain.Member, error) {
	var out []domain.Member
	for _, member := range m.members {
		out = append(out, *member)
	}
	return out, nil
}

func (m *mockDirectory) GrantRole(ctx context.Context, serverID, userID, roleID string) error {
	if roleID == m.failRole {
		return domain.PermissionDeniedError{ServerID: serverID, UserID: userID, RoleID: roleID}
	}
	m.grants = append(m.grants, roleOp{serverID, userID, roleID})
	return nil
}

func (m *mockDirectory) RevokeRole(ctx context.Context, serverID, userID, roleID string) error {
	if roleID == m.failRole {
		return domain.PermissionDeniedError{ServerID: serverID, UserID: userID, RoleID: roleID}
	}
	m.revokes = append(m.revokes, roleOp{serverID, userID, roleID})
	return nil
}

type notification struct {
	channelID string
	text      string
}

type mockNotifier struct {
	sent []notification
}

func (m *mockNotifier) Send(ctx context.Context, channelID string, text string) {
	m.sent = append(m.sent, notification{channelID, text})
}
