package dispatch

import (
	"reflect"
	"testing"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

func sampleLead() *domain.Lead {
	return &domain.Lead{
		ID:        "lead-1",
		FirstName: "Jane",
		LastName:  "Van Dyke",
		Phone:     "5551234567",
		Email:     "jane@example.com",
		Address:   "1 Main St",
		IP:        "203.0.113.9",
		Country:   "Netherlands",
		Sub1:      "fb",
		Sub2:      "camp42",
		Status:    domain.StatusNew,
	}
}

func TestBuildRequest_FullNameSynthesis(t *testing.T) {
	attrs := []domain.RouteAttribute{
		{Type: domain.AttributeBody, Param: "fullName", Value: "full_name"},
	}
	body, headers := BuildRequest(attrs, sampleLead())
	if body["full_name"] != "Jane Van Dyke" {
		t.Fatalf("full_name = %q", body["full_name"])
	}
	if len(headers) != 0 {
		t.Fatalf("unexpected headers: %v", headers)
	}

	// "name" is an accepted alias for the same synthesis.
	attrs[0].Param = "name"
	body, _ = BuildRequest(attrs, sampleLead())
	if body["full_name"] != "Jane Van Dyke" {
		t.Fatalf("name alias: full_name = %q", body["full_name"])
	}
}

func TestBuildRequest_FullNameTrimsWhenLastNameEmpty(t *testing.T) {
	lead := sampleLead()
	lead.LastName = ""
	body, _ := BuildRequest([]domain.RouteAttribute{
		{Type: domain.AttributeBody, Param: "fullName", Value: "n"},
	}, lead)
	if body["n"] != "Jane" {
		t.Fatalf("expected trimmed single name, got %q", body["n"])
	}
}

func TestBuildRequest_CustomLiteral(t *testing.T) {
	attrs := []domain.RouteAttribute{
		{Type: domain.AttributeBody, Param: "source", Value: "affiliate-net", IsCustom: true},
	}
	body, _ := BuildRequest(attrs, sampleLead())
	if body["source"] != "affiliate-net" {
		t.Fatalf("custom literal: %q", body["source"])
	}
}

func TestBuildRequest_FieldMappingAndUnknownParam(t *testing.T) {
	attrs := []domain.RouteAttribute{
		{Type: domain.AttributeBody, Param: "phone", Value: "msisdn"},
		{Type: domain.AttributeBody, Param: "email", Value: "mail"},
		{Type: domain.AttributeBody, Param: "status", Value: "state"},
		{Type: domain.AttributeBody, Param: "doesNotExist", Value: "mystery"},
	}
	body, _ := BuildRequest(attrs, sampleLead())

	want := map[string]string{
		"msisdn":  "5551234567",
		"mail":    "jane@example.com",
		"state":   "New",
		"mystery": "",
	}
	if !reflect.DeepEqual(body, want) {
		t.Fatalf("body = %v, want %v", body, want)
	}
}

func TestBuildRequest_Headers(t *testing.T) {
	attrs := []domain.RouteAttribute{
		{Type: domain.AttributeHeader, Param: "X-Api-Key", Value: "secret"},
		{Type: domain.AttributeHeader, Param: "X-Source", Value: "leads"},
	}
	body, headers := BuildRequest(attrs, sampleLead())
	if len(body) != 0 {
		t.Fatalf("unexpected body entries: %v", body)
	}
	if headers["X-Api-Key"] != "secret" || headers["X-Source"] != "leads" {
		t.Fatalf("headers = %v", headers)
	}
}

func TestBuildRequest_LastWriteWinsOnCollision(t *testing.T) {
	attrs := []domain.RouteAttribute{
		{Type: domain.AttributeBody, Param: "phone", Value: "contact"},
		{Type: domain.AttributeBody, Param: "email", Value: "contact"},
	}
	body, _ := BuildRequest(attrs, sampleLead())
	if body["contact"] != "jane@example.com" {
		t.Fatalf("expected later descriptor to win, got %q", body["contact"])
	}
}

func TestBuildRequest_Deterministic(t *testing.T) {
	attrs := []domain.RouteAttribute{
		{Type: domain.AttributeBody, Param: "fullName", Value: "full_name"},
		{Type: domain.AttributeBody, Param: "phone", Value: "msisdn"},
		{Type: domain.AttributeBody, Param: "offer", Value: "42", IsCustom: true},
		{Type: domain.AttributeHeader, Param: "X-Api-Key", Value: "k"},
	}
	lead := sampleLead()

	b1, h1 := BuildRequest(attrs, lead)
	b2, h2 := BuildRequest(attrs, lead)
	if !reflect.DeepEqual(b1, b2) || !reflect.DeepEqual(h1, h2) {
		t.Fatalf("identical inputs produced different outputs")
	}
}

func TestBuildRequest_EmptyAttributes(t *testing.T) {
	body, headers := BuildRequest(nil, sampleLead())
	if len(body) != 0 || len(headers) != 0 {
		t.Fatalf("expected empty maps, got %v / %v", body, headers)
	}
}
