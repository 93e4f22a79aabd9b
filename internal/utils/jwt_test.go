package utils

import (
	"testing"
	"time"
)

func testIssuer() TokenIssuer {
	return TokenIssuer{Secret: "s3cret", Issuer: "cinema-ops-backend", Audience: "cinema-ops-clients", TTL: time.Hour}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	ti := testIssuer()
	at, err := ti.NewAccessToken("vendedor@cinema.local", "Vendedor", "SELLER", []string{"sales:create"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ti.Parse(at.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "vendedor@cinema.local" || claims.Role != "SELLER" || len(claims.Permissions) != 1 {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
}

func TestParse_RejectsWrongSecretAudienceAndExpiry(t *testing.T) {
	ti := testIssuer()
	at, _ := ti.NewAccessToken("a@x", "", "MANAGER", nil)

	other := ti
	other.Secret = "different"
	if _, err := other.Parse(at.Token); err == nil {
		t.Fatal("expected signature error")
	}
	other = ti
	other.Audience = "someone-else"
	if _, err := other.Parse(at.Token); err == nil {
		t.Fatal("expected audience error")
	}

	expired := ti
	expired.TTL = -time.Minute
	old, _ := expired.NewAccessToken("a@x", "", "MANAGER", nil)
	if _, err := ti.Parse(old.Token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("expected 96 hex chars, got %d", len(rt.Raw))
	}
	if HashRefreshRaw(rt.Raw) == rt.Raw || len(HashRefreshRaw(rt.Raw)) != 64 {
		t.Fatal("unexpected hash")
	}
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("pw", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "pw") || VerifyPassword(h, "nope") {
		t.Fatal("unexpected verify result")
	}
}
