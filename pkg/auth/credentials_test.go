package auth

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	// Use mock manager for reliable testing
	manager, mockStore := NewMockManager()

	cred := &Credential{
		Kind:         KindAuthorization,
		Value:        "test_authorization_token_12345",
		LastModified: time.Now(),
	}

	err := manager.Store(cred)
	if err != nil {
		t.Errorf("Failed to store credential: %v", err)
	}

	retrieved, err := manager.Retrieve(KindAuthorization)
	if err != nil {
		t.Errorf("Failed to retrieve credential: %v", err)
	}

	if retrieved.Kind != cred.Kind {
		t.Errorf("Kind mismatch: got %s, want %s", retrieved.Kind, cred.Kind)
	}
	if retrieved.Value != cred.Value {
		t.Errorf("Value mismatch: got %s, want %s", retrieved.Value, cred.Value)
	}

	creds, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list credentials: %v", err)
	}
	if len(creds) == 0 {
		t.Error("Expected at least one credential in list")
	}

	// Test sanitization
	sanitized := SanitizeCredential(cred)
	if sanitized.Value == cred.Value {
		t.Error("Value should be masked")
	}
	if sanitized.Kind != cred.Kind {
		t.Error("Kind should not be masked")
	}

	// Test deletion
	err = manager.Delete(KindAuthorization)
	if err != nil {
		t.Errorf("Failed to delete credential: %v", err)
	}

	_, err = manager.Retrieve(KindAuthorization)
	if err == nil {
		t.Error("Expected error retrieving deleted credential")
	}

	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 credentials after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsInvalidCredentials(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Credential{Kind: "made-up-kind", Value: "v"}); err == nil {
		t.Error("Expected error for unknown credential kind")
	}
	if err := manager.Store(&Credential{Kind: KindLofterSession}); err == nil {
		t.Error("Expected error for empty credential value")
	}
	if err := manager.Store(nil); err == nil {
		t.Error("Expected error for nil credential")
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range AllKinds {
		parsed, err := ParseKind(string(kind))
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", kind, err)
		}
		if parsed != kind {
			t.Errorf("ParseKind(%q) = %q", kind, parsed)
		}
	}

	if _, err := ParseKind("sessionid"); err == nil {
		t.Error("Expected error for unknown kind name")
	}
}

func TestCarrierActiveInvariant(t *testing.T) {
	values := map[Kind]string{
		KindAuthorization:  "token-value",
		KindLofterSession:  "sess-value",
		KindNetEaseSession: "",
	}

	carrier, err := NewCarrier(values, KindAuthorization)
	if err != nil {
		t.Fatalf("NewCarrier failed: %v", err)
	}
	if carrier.ActiveKind() != KindAuthorization {
		t.Errorf("ActiveKind = %s, want %s", carrier.ActiveKind(), KindAuthorization)
	}
	if carrier.ActiveValue() != "token-value" {
		t.Errorf("ActiveValue = %q", carrier.ActiveValue())
	}

	// Empty values are dropped, so they cannot be selected as active.
	if _, err := NewCarrier(values, KindNetEaseSession); err == nil {
		t.Error("Expected error when active kind has an empty value")
	}

	// Active kind must be a member of the set.
	if _, err := NewCarrier(values, KindPhoneLogin); err == nil {
		t.Error("Expected error when active kind is absent")
	}
}

func TestCarrierWithActiveDoesNotMutate(t *testing.T) {
	values := map[Kind]string{
		KindAuthorization: "token-value",
		KindLofterSession: "sess-value",
	}

	carrier, err := NewCarrier(values, KindAuthorization)
	if err != nil {
		t.Fatalf("NewCarrier failed: %v", err)
	}

	switched, err := carrier.WithActive(KindLofterSession)
	if err != nil {
		t.Fatalf("WithActive failed: %v", err)
	}

	if carrier.ActiveKind() != KindAuthorization {
		t.Error("original carrier was mutated by WithActive")
	}
	if switched.ActiveKind() != KindLofterSession {
		t.Errorf("switched carrier active = %s", switched.ActiveKind())
	}
}

func TestCarrierApply(t *testing.T) {
	carrier, err := NewCarrier(map[Kind]string{
		KindAuthorization:  "token-value",
		KindLofterSession:  "sess-value",
		KindNetEaseSession: "ntes-value",
	}, KindAuthorization)
	if err != nil {
		t.Fatalf("NewCarrier failed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://api.lofter.com/v1.1/bloginfo.api", nil)
	carrier.Apply(req)

	cookies := map[string]string{}
	for _, c := range req.Cookies() {
		cookies[c.Name] = c.Value
	}
	if cookies["Authorization"] != "token-value" {
		t.Errorf("Authorization cookie = %q", cookies["Authorization"])
	}
	if cookies["LOFTER_SESS"] != "sess-value" {
		t.Errorf("LOFTER_SESS cookie = %q", cookies["LOFTER_SESS"])
	}
	if cookies["NTES_SESS"] != "ntes-value" {
		t.Errorf("NTES_SESS cookie = %q", cookies["NTES_SESS"])
	}
}

func TestCarrierApplySendsTokenKindsAsCookies(t *testing.T) {
	carrier, err := NewCarrier(map[Kind]string{
		KindPhoneLogin: "phone-token",
	}, KindPhoneLogin)
	if err != nil {
		t.Fatalf("NewCarrier failed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, "https://api.lofter.com/newapi/subscribeCollection/list.json", nil)
	carrier.Apply(req)

	// The API only reads credentials from the Cookie header, so the
	// token must not be sent as its own request header.
	if got := req.Header.Get(string(KindPhoneLogin)); got != "" {
		t.Errorf("phone login token leaked into a bare header: %q", got)
	}

	found := false
	for _, c := range req.Cookies() {
		if c.Name == string(KindPhoneLogin) && c.Value == "phone-token" {
			found = true
		}
	}
	if !found {
		t.Error("phone login token missing from the Cookie header")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tmpDir := t.TempDir()
	os.Setenv("LOFTER_PASSPHRASE", "test-passphrase")
	defer os.Unsetenv("LOFTER_PASSPHRASE")

	store, err := NewEncryptedFileStore(filepath.Join(tmpDir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	cred := &Credential{
		Kind:         KindLofterSession,
		Value:        "encrypted_session_value_123",
		LastModified: time.Now(),
	}

	if err := store.Store(cred); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	retrieved, err := store.Retrieve(KindLofterSession)
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.Value != cred.Value {
		t.Errorf("Value mismatch after decrypt: got %s, want %s", retrieved.Value, cred.Value)
	}

	if !store.Exists(KindLofterSession) {
		t.Error("Exists should report stored credential")
	}
	if store.Exists(KindPhoneLogin) {
		t.Error("Exists should not report unstored credential")
	}

	// File on disk must not contain the plaintext value.
	content, err := os.ReadFile(filepath.Join(tmpDir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to read store file: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("Store file is empty")
	}
	if strings.Contains(string(content), cred.Value) {
		t.Error("Plaintext credential value leaked into store file")
	}

	if err := store.Delete(KindLofterSession); err != nil {
		t.Errorf("Failed to delete credential: %v", err)
	}
	if _, err := store.Retrieve(KindLofterSession); err == nil {
		t.Error("Expected error retrieving deleted credential")
	}
}

func TestEnvironmentStore(t *testing.T) {
	os.Setenv("LOFTER_COOKIE_NTES_SESS", "env-session-value")
	os.Setenv("LOFTER_COOKIE_LOFTER_PHONE_LOGIN_AUTH", "env-phone-token")
	defer os.Unsetenv("LOFTER_COOKIE_NTES_SESS")
	defer os.Unsetenv("LOFTER_COOKIE_LOFTER_PHONE_LOGIN_AUTH")

	store := NewEnvironmentStore()

	cred, err := store.Retrieve(KindNetEaseSession)
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if cred.Value != "env-session-value" {
		t.Errorf("Value = %q", cred.Value)
	}

	cred, err = store.Retrieve(KindPhoneLogin)
	if err != nil {
		t.Fatalf("Failed to retrieve phone token: %v", err)
	}
	if cred.Value != "env-phone-token" {
		t.Errorf("Value = %q", cred.Value)
	}

	if _, err := store.Retrieve(KindAuthorization); err == nil {
		t.Error("Expected error for unset environment variable")
	}

	if err := store.Store(&Credential{Kind: KindAuthorization, Value: "x"}); err != ErrStoreUnavailable {
		t.Errorf("Store should be unsupported, got %v", err)
	}

	creds, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(creds) != 2 {
		t.Errorf("Expected 2 credentials from environment, got %d", len(creds))
	}
}

func TestManagerCarrierUsesStoredCredentials(t *testing.T) {
	manager, _ := NewMockManager()

	_ = manager.Store(&Credential{Kind: KindAuthorization, Value: "tok"})
	_ = manager.Store(&Credential{Kind: KindLofterSession, Value: "sess"})

	carrier, err := manager.Carrier(KindLofterSession)
	if err != nil {
		t.Fatalf("Carrier failed: %v", err)
	}
	if carrier.ActiveValue() != "sess" {
		t.Errorf("ActiveValue = %q", carrier.ActiveValue())
	}
	if carrier.Value(KindAuthorization) != "tok" {
		t.Errorf("Value(Authorization) = %q", carrier.Value(KindAuthorization))
	}

	if _, err := manager.Carrier(KindNetEaseSession); err == nil {
		t.Error("Expected error building carrier with unstored active kind")
	}
}
