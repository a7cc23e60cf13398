package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "tutor-1", RoleName: RoleTutor}
	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.RoleName != claims.RoleName || parsed.Subject != claims.UserID {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1", RoleName: RoleTutor}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature error")
	}

	expired, err := GenerateToken("secret-a", Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-a", expired); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "u1"})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := ParseToken("secret", signed); err == nil {
		t.Fatal("expected algorithm rejection")
	}
}

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}
	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestHasPermission(t *testing.T) {
	if !HasPermission(RolePayrollAdmin, PermPayrollStatus) {
		t.Fatal("payroll admin must change status")
	}
	if HasPermission(RoleTutor, PermPayrollWrite) {
		t.Fatal("tutor must not edit lines")
	}
	if (UserContext{RoleName: "unknown"}).Can(PermPayrollReadOwn) {
		t.Fatal("unknown role has no permissions")
	}
}
