package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nerevar/corpsync/internal/domain"
	"github.com/nerevar/corpsync/internal/usecase"
)

// --- mocks ---

type mockAttempts struct {
	attempt *domain.AuthAttempt
}

func (m *mockAttempts) Begin(ctx context.Context, serverID, userID, userName, locale string) (*domain.AuthAttempt, error) {
	return m.attempt, nil
}

func (m *mockAttempts) Consume(ctx context.Context, state string) (*domain.AuthAttempt, error) {
	if m.attempt == nil || m.attempt.State != state {
		return nil, domain.NotFoundError{Resource: "auth attempt"}
	}
	attempt := *m.attempt
	m.attempt = nil
	return &attempt, nil
}

func (m *mockAttempts) SweepExpired(ctx context.Context) (int64, error) { return 0, nil }

type mockHandshake struct{}

func (m *mockHandshake) AuthorizationURL(attempt domain.AuthAttempt) string { return "" }
func (m *mockHandshake) ExchangeCode(ctx context.Context, code string, codeVerifier string) (*domain.AccessToken, error) {
	return &domain.AccessToken{AccessToken: "at-1"}, nil
}

type mockValidator struct{}

func (m *mockValidator) Identity(ctx context.Context, accessToken string) (*domain.TokenIdentity, error) {
	return &domain.TokenIdentity{CharacterID: 1, CharacterName: "Zed"}, nil
}

type mockIdentity struct{}

func (m *mockIdentity) Character(ctx context.Context, id int64) (*domain.AffiliationRecord, error) {
	return &domain.AffiliationRecord{CharacterID: id, Name: "Zed", CorporationID: 100}, nil
}

func (m *mockIdentity) Corporation(ctx context.Context, id int64) (*domain.CorporationRecord, error) {
	return nil, domain.NotFoundError{Resource: "corporation"}
}

func (m *mockIdentity) Characters(ctx context.Context, ids []int64) map[int64]domain.AffiliationRecord {
	return nil
}

type mockRules struct{}

func (m *mockRules) Save(ctx context.Context, rule domain.Rule) error { return nil }
func (m *mockRules) Find(ctx context.Context, serverID, roleID string) (*domain.Rule, error) {
	return nil, domain.NotFoundError{Resource: "rule"}
}
func (m *mockRules) ListByServer(ctx context.Context, serverID string) ([]domain.Rule, error) {
	return []domain.Rule{{ServerID: serverID, RoleID: "r1", CorporationID: 100}}, nil
}
func (m *mockRules) List(ctx context.Context) ([]domain.Rule, error)          { return nil, nil }
func (m *mockRules) Delete(ctx context.Context, serverID, roleID string) error { return nil }

type mockRegistrations struct {
	existing []domain.Character
}

func (m *mockRegistrations) Create(ctx context.Context, registration *domain.Registration) error {
	registration.ID = "reg-1"
	return nil
}

func (m *mockRegistrations) Find(ctx context.Context, serverID, userID string) (*domain.Registration, error) {
	if m.existing == nil {
		return nil, domain.NotFoundError{Resource: "registration"}
	}
	return &domain.Registration{ID: "reg-1", ServerID: serverID, UserID: userID, Characters: m.existing}, nil
}

func (m *mockRegistrations) ListByServer(ctx context.Context, serverID string) ([]domain.Registration, error) {
	return nil, nil
}
func (m *mockRegistrations) Delete(ctx context.Context, serverID, userID string) error { return nil }

type mockCharacters struct {
	upserted int
}

func (m *mockCharacters) Upsert(ctx context.Context, character domain.Character) error {
	m.upserted++
	return nil
}

func (m *mockCharacters) Find(ctx context.Context, serverID string, characterID int64) (*domain.Character, error) {
	return nil, domain.NotFoundError{Resource: "character"}
}

func (m *mockCharacters) ListByServer(ctx context.Context, serverID string) ([]domain.Character, error) {
	return nil, nil
}

func (m *mockCharacters) UpdateAffiliation(ctx context.Context, serverID string, characterID int64, corporationID int64, allianceID *int64, refreshedAt time.Time) error {
	return nil
}

func (m *mockCharacters) Delete(ctx context.Context, serverID string, characterID int64) error {
	return nil
}

type mockDirectory struct{}

func (m *mockDirectory) RoleExists(ctx context.Context, serverID, roleID string) (bool, error) {
	return true, nil
}
func (m *mockDirectory) GetMember(ctx context.Context, serverID, userID string) (*domain.Member, error) {
	return &domain.Member{UserID: userID}, nil
}
func (m *mockDirectory) ListMembers(ctx context.Context, serverID string) ([]domain.Member, error) {
	return nil, nil
}
func (m *mockDirectory) GrantRole(ctx context.Context, serverID, userID, roleID string) error {
	return nil
}
func (m *mockDirectory) RevokeRole(ctx context.Context, serverID, userID, roleID string) error {
	return nil
}

// --- tests ---

func newTestServer(attempts *mockAttempts, registrations *mockRegistrations) (*echo.Echo, *mockCharacters) {
	characters := &mockCharacters{}
	uc := usecase.NewRegisterUsecase(
		attempts, &mockHandshake{}, &mockValidator{}, &mockIdentity{},
		&mockRules{}, registrations, characters, &mockDirectory{},
		slog.New(slog.DiscardHandler))

	e := echo.New()
	NewHandler(uc).RegisterRoutes(e)
	return e, characters
}

func TestHandleCallbackRegisters(t *testing.T) {
	attempts := &mockAttempts{attempt: &domain.AuthAttempt{
		State:        "state-1",
		CodeVerifier: "verifier-1",
		ServerID:     "s1",
		UserID:       "u1",
		Locale:       "en-US",
	}}
	e, characters := newTestServer(attempts, &mockRegistrations{})

	req := httptest.NewRequest(http.MethodGet, "/callback?code=code-1&state=state-1", nil)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", res.Code, res.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if body["result"] != "REGISTERED" || body["character"] != "Zed" {
		t.Fatalf("unexpected body: %v", body)
	}
	if characters.upserted != 1 {
		t.Fatalf("expected character upsert")
	}
}

func TestHandleCallbackMissingParams(t *testing.T) {
	e, _ := newTestServer(&mockAttempts{}, &mockRegistrations{})

	for _, target := range []string{"/callback?state=state-1", "/callback?code=code-1"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		res := httptest.NewRecorder()
		e.ServeHTTP(res, req)

		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s got %d", target, res.Code)
		}
	}
}

func TestHandleCallbackUnknownState(t *testing.T) {
	e, _ := newTestServer(&mockAttempts{}, &mockRegistrations{})

	req := httptest.NewRequest(http.MethodGet, "/callback?code=code-1&state=missing", nil)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", res.Code)
	}
}

func TestHandleCallbackDuplicateCharacter(t *testing.T) {
	attempts := &mockAttempts{attempt: &domain.AuthAttempt{
		State:        "state-1",
		CodeVerifier: "verifier-1",
		ServerID:     "s1",
		UserID:       "u1",
	}}
	registrations := &mockRegistrations{existing: []domain.Character{{CharacterID: 1}}}
	e, _ := newTestServer(attempts, registrations)

	req := httptest.NewRequest(http.MethodGet, "/callback?code=code-1&state=state-1", nil)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", res.Code)
	}
}
