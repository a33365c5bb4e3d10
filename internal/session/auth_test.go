package session

import (
	"context"
	"errors"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
	calls int
}

func (s *stubVerifier) VerifyIDToken(ctx context.Context, token string) (*firebaseauth.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestFirebaseAuthenticatorSuccess(t *testing.T) {
	verifier := &stubVerifier{
		token: &firebaseauth.Token{
			UID: "user-123",
			Claims: map[string]interface{}{
				"email":   "hira@example.com",
				"name":    " Hira ",
				"picture": "https://example.com/hira.png",
			},
		},
	}
	auth := NewFirebaseAuthenticator(verifier)

	user, err := auth.Authenticate(context.Background(), "token")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if user.UID != "user-123" {
		t.Fatalf("unexpected uid %q", user.UID)
	}
	if user.Email != "hira@example.com" || user.DisplayName != "Hira" {
		t.Fatalf("unexpected claims mapping: %+v", user)
	}
	if user.AvatarURL != "https://example.com/hira.png" {
		t.Fatalf("unexpected avatar %q", user.AvatarURL)
	}
}

func TestFirebaseAuthenticatorMissingToken(t *testing.T) {
	verifier := &stubVerifier{}
	auth := NewFirebaseAuthenticator(verifier)

	_, err := auth.Authenticate(context.Background(), "  ")
	if ReasonOf(err) != ReasonMissingToken {
		t.Fatalf("expected missing token reason, got %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier must not be called without a token")
	}
}

func TestFirebaseAuthenticatorExpiredToken(t *testing.T) {
	auth := NewFirebaseAuthenticator(&stubVerifier{err: ErrTokenExpired})

	_, err := auth.Authenticate(context.Background(), "token")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected wrapped ErrTokenExpired, got %v", err)
	}
	if ReasonOf(err) != ReasonTokenExpired {
		t.Fatalf("expected expired reason, got %q", ReasonOf(err))
	}
}

func TestFirebaseAuthenticatorInvalidToken(t *testing.T) {
	auth := NewFirebaseAuthenticator(&stubVerifier{err: errors.New("bad signature")})

	_, err := auth.Authenticate(context.Background(), "token")
	if ReasonOf(err) != ReasonTokenInvalid {
		t.Fatalf("expected invalid reason, got %q", ReasonOf(err))
	}
}

func TestDevAuthenticator(t *testing.T) {
	cases := []struct {
		token  string
		uid    string
		reason string
	}{
		{token: "debug:amna", uid: "amna"},
		{token: " debug: sara ", uid: "sara"},
		{token: "", reason: ReasonMissingToken},
		{token: "debug:", reason: ReasonTokenInvalid},
		{token: "eyJhbGciOi", reason: ReasonTokenInvalid},
	}
	for _, tc := range cases {
		user, err := DevAuthenticator{}.Authenticate(context.Background(), tc.token)
		if tc.reason != "" {
			if ReasonOf(err) != tc.reason {
				t.Fatalf("token %q: expected reason %q, got %v", tc.token, tc.reason, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("token %q: unexpected error %v", tc.token, err)
		}
		if user.UID != tc.uid || user.Name() != tc.uid {
			t.Fatalf("token %q: unexpected user %+v", tc.token, user)
		}
	}
}
