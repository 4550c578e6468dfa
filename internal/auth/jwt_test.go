package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("staff-1", "Grace", "staff", "schoolgate", "key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := Parse(pair.AccessToken, "key", "schoolgate")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "staff-1" || claims.Name != "Grace" || claims.Role != "staff" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejections(t *testing.T) {
	pair, err := Issue("staff-1", "", "staff", "schoolgate", "key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Parse(pair.AccessToken, "wrong-key", "schoolgate"); err == nil {
		t.Error("wrong key accepted")
	}
	if _, err := Parse(pair.AccessToken, "key", "other-issuer"); err == nil {
		t.Error("wrong issuer accepted")
	}
	if _, err := Parse("garbage", "key", "schoolgate"); err == nil {
		t.Error("garbage token accepted")
	}

	expired, err := Issue("staff-1", "", "staff", "schoolgate", "key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(expired.AccessToken, "key", "schoolgate"); err == nil {
		t.Error("expired token accepted")
	}
}
