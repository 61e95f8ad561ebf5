package domain

import "testing"

func TestNormalizeBranch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0101", "0101"},
		{"0101 - MATRIZ SAO PAULO", "0101"},
		{"0101-FILIAL RJ", "0101"},
		{"  0203  ", "0203"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeBranch(tt.in); got != tt.want {
			t.Errorf("NormalizeBranch(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocumentKey(t *testing.T) {
	doc := Document{TenantID: "BR", ID: "  000123 "}
	key := doc.Key()
	if key.DocumentID != "000123" {
		t.Errorf("Key().DocumentID = %q, want trimmed id", key.DocumentID)
	}
	if key.TenantID != "BR" {
		t.Errorf("Key().TenantID = %q, want BR", key.TenantID)
	}
}

func TestDocumentRef(t *testing.T) {
	tagged := Document{TenantID: "AR"}
	if ref := tagged.Ref(); ref.IsDefault() || ref.ID() != "AR" {
		t.Errorf("Ref() = %v, want tenant AR", ref)
	}

	untagged := Document{}
	if ref := untagged.Ref(); !ref.IsDefault() {
		t.Errorf("Ref() = %v, want default tenant", ref)
	}
}

func TestDecision(t *testing.T) {
	if !DecisionApprove.Valid() || !DecisionReject.Valid() {
		t.Error("known decisions should be valid")
	}
	if Decision("maybe").Valid() {
		t.Error("unknown decision should be invalid")
	}
	if got := DecisionApprove.Keyword(); got != "APROVACAO" {
		t.Errorf("approve keyword = %q", got)
	}
	if got := DecisionReject.Keyword(); got != "REJEICAO" {
		t.Errorf("reject keyword = %q", got)
	}
	if DecisionApprove.DefaultComment() == "" || DecisionReject.DefaultComment() == "" {
		t.Error("default comments must not be empty")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindPurchaseOrder, KindPurchaseRequest, KindContract} {
		if !k.Valid() {
			t.Errorf("Kind %q should be valid", k)
		}
	}
	if Kind("XX").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
