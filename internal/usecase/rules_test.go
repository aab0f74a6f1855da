package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/nerevar/corpsync/internal/domain"
)

func TestAddRuleValidatesCorporation(t *testing.T) {
	rules := &mockRules{}
	identity := &mockIdentity{corporations: map[int64]domain.CorporationRecord{
		100: {CorporationID: 100, Name: "Brave Newbies", Ticker: "BNI"},
	}}
	uc := NewRulesUsecase(rules, identity, testLogger())

	rule, err := uc.AddRule(context.Background(), "s1", "r1", 100, "ch1", "en-US")
	if err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if rule.CorporationName != "Brave Newbies" || rule.CorporationTicker != "BNI" {
		t.Fatalf("corporation details not captured: %+v", rule)
	}
	if len(rules.saved) != 1 {
		t.Fatalf("expected rule saved")
	}

	if _, err := uc.AddRule(context.Background(), "s1", "r1", 999, "", "en-US"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown corporation, got %v", err)
	}
}

func TestAddRuleUpdatesExisting(t *testing.T) {
	rules := &mockRules{rules: []domain.Rule{
		{ID: 7, ServerID: "s1", RoleID: "r1", CorporationID: 100},
	}}
	identity := &mockIdentity{corporations: map[int64]domain.CorporationRecord{
		200: {CorporationID: 200, Name: "Karmafleet", Ticker: "KF"},
	}}
	uc := NewRulesUsecase(rules, identity, testLogger())

	rule, err := uc.AddRule(context.Background(), "s1", "r1", 200, "", "en-US")
	if err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if rule.ID != 7 {
		t.Fatalf("existing rule id not preserved: %+v", rule)
	}
	if len(rules.rules) != 1 || rules.rules[0].CorporationID != 200 {
		t.Fatalf("rule not updated in place: %+v", rules.rules)
	}
}

func TestRemoveRule(t *testing.T) {
	rules := &mockRules{rules: []domain.Rule{
		{ServerID: "s1", RoleID: "r1", CorporationID: 100},
	}}
	uc := NewRulesUsecase(rules, &mockIdentity{}, testLogger())

	if err := uc.RemoveRule(context.Background(), "s1", "r1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := uc.RemoveRule(context.Background(), "s1", "r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListRules(t *testing.T) {
	rules := &mockRules{rules: []domain.Rule{
		{ServerID: "s1", RoleID: "r1", CorporationID: 100},
		{ServerID: "s2", RoleID: "r2", CorporationID: 200},
	}}
	uc := NewRulesUsecase(rules, &mockIdentity{}, testLogger())

	got, err := uc.ListRules(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].RoleID != "r1" {
		t.Fatalf("unexpected rules: %+v", got)
	}
}
