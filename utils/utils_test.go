package utils

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/lib/pq"
	"github.com/pquerna/otp/totp"
)

func TestAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "a@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ValidateAccessToken("secret", token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ValidateAccessToken("other", token); err == nil {
		t.Error("expected error for wrong secret")
	}
	if _, err := ValidateAccessToken("secret", "garbage"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestExpiredAccessToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	signed, _ := token.SignedString([]byte("secret"))

	if _, err := ValidateAccessToken("secret", signed); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	t.Setenv("DATA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	sealed, err := Encrypt([]byte("JBSWY3DPEHPK3PXP"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(sealed, "JBSWY3DPEHPK3PXP") {
		t.Error("ciphertext leaks plaintext")
	}

	plain, err := Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plain) != "JBSWY3DPEHPK3PXP" {
		t.Errorf("round trip got %q", plain)
	}

	if _, err := Decrypt("AAAA"); err == nil {
		t.Error("expected error for short ciphertext")
	}
}

func TestEncryptRequiresKey(t *testing.T) {
	t.Setenv("DATA_ENCRYPTION_KEY", "short")

	if _, err := Encrypt([]byte("x")); !errors.Is(err, ErrEncryptionKey) {
		t.Errorf("expected ErrEncryptionKey, got %v", err)
	}
}

func TestTOTP(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("a@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	if !strings.HasPrefix(url, "otpauth://totp/") || !strings.Contains(url, "issuer=Giftlist") {
		t.Errorf("unexpected url %q", url)
	}

	code, _ := totp.GenerateCode(secret, time.Now())
	if !VerifyTOTP(secret, code) {
		t.Error("expected current code to verify")
	}
	if VerifyTOTP(secret, "abcdef") {
		t.Error("expected garbage code to fail")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("password123", hash) {
		t.Error("expected password to match")
	}
	if CheckPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestMasking(t *testing.T) {
	prev := IsProduction
	IsProduction = true
	t.Cleanup(func() { IsProduction = prev })

	in := "user alice@example.com claimed 12.50 € on 123e4567-e89b-12d3-a456-426614174000 via ?token=abc123"
	got := MaskString(in)

	for _, leaked := range []string{"alice@example.com", "12.50", "426614174000", "abc123"} {
		if strings.Contains(got, leaked) {
			t.Errorf("masked output %q still contains %q", got, leaked)
		}
	}
	if !strings.Contains(got, "123e4567...") {
		t.Errorf("expected shortened id in %q", got)
	}

	if MaskAmount(1250) != "***" || MaskEmail("a@b.co") != "***@***.***" || MaskID("abc") != "***" {
		t.Error("expected masked helpers in production")
	}

	IsProduction = false
	if MaskAmount(1250) != "12.50" {
		t.Errorf("MaskAmount = %s", MaskAmount(1250))
	}
	if MaskString(in) != in {
		t.Error("expected no masking outside production")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]int{
		"debug":   LogLevelDebug,
		"WARNING": LogLevelWarn,
		"error":   LogLevelError,
		"":        LogLevelInfo,
		"verbose": LogLevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSendInvitationEmail(t *testing.T) {
	var got EmailRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	t.Cleanup(server.Close)

	m := NewMailer("re_test", "", "https://gifts.example.com")
	m.Endpoint = server.URL

	if err := m.SendInvitationEmail(context.Background(), "bob@example.com", "Alice", "Family", "tok-1"); err != nil {
		t.Fatalf("SendInvitationEmail: %v", err)
	}
	if auth != "Bearer re_test" {
		t.Errorf("unexpected auth header %q", auth)
	}
	if len(got.To) != 1 || got.To[0] != "bob@example.com" {
		t.Errorf("unexpected recipients %v", got.To)
	}
	if !strings.Contains(got.HTML, "https://gifts.example.com/invitation/accept?token=tok-1") {
		t.Error("expected accept link in body")
	}
	if !strings.Contains(got.Subject, "Family") {
		t.Errorf("unexpected subject %q", got.Subject)
	}
}

func TestSendEmailFailures(t *testing.T) {
	disabled := NewMailer("", "", "")
	if err := disabled.SendInvitationEmail(context.Background(), "b@example.com", "A", "G", "t"); !errors.Is(err, ErrEmailDisabled) {
		t.Errorf("expected ErrEmailDisabled, got %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	t.Cleanup(server.Close)

	m := NewMailer("re_test", "", "")
	m.Endpoint = server.URL
	err := m.SendInvitationEmail(context.Background(), "b@example.com", "A", "G", "t")
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestSafeDebugRespectsLogLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	prevLevel, prevProd := LogLevel, IsProduction
	IsProduction = false
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		LogLevel, IsProduction = prevLevel, prevProd
	})

	LogLevel = LogLevelInfo
	SafeDebug("claim %s skipped", "c1")
	if buf.Len() != 0 {
		t.Errorf("debug line logged at INFO level: %q", buf.String())
	}

	LogLevel = LogLevelDebug
	SafeDebug("claim %s skipped", "c1")
	if !strings.Contains(buf.String(), "[DEBUG] claim c1 skipped") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestWithTransactionHonorsContext(t *testing.T) {
	// sql.Open does not dial, so no server is needed.
	db, err := sql.Open("postgres", "postgres://giftlist@127.0.0.1:1/giftlist?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = WithTransaction(ctx, db, func(tx *sql.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}
