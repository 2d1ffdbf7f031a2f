package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("unique hashes", func(t *testing.T) {
		pw := "password1234"
		hash, err := HashPassword(pw)
		if err != nil {
			t.Fatalf("password hash fail #1: %+v", err)
		}

		hash2, err := HashPassword(pw)
		if err != nil {
			t.Fatalf("password hash fail #2: %+v", err)
		}

		if hash == hash2 {
			t.Fatalf("hash and hash2 are the same hashes; should be different: %s, %s", hash, hash2)
		}
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := HashPassword("")
		if err != nil {
			t.Errorf("HashPassword() failed on empty string: %+v", err)
		}
	})
}

func TestCheckPasswordHash(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		checkPw   string
		hash      string
		wantErr   bool
		wantMatch bool
	}{
		{"correct pw", "mypassword1234", "mypassword1234", "", false, true},
		{"incorrect pw", "mypassword1234", "passwordDD1234", "", false, false},
		{"wrong hash", "mypassword1234", "passwordDD1234", "not-a-hash", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hash string
			var err error

			if tt.hash != "" {
				hash = tt.hash
			} else {
				hash, err = HashPassword(tt.password)
				if err != nil {
					t.Fatalf("%+v", err)
				}
			}

			isMatch, err := CheckPasswordHash(tt.checkPw, hash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckPasswordHash() error = %+v", err)
			}
			if isMatch != tt.wantMatch {
				t.Errorf("CheckPasswordHash() match = %v, want %v", isMatch, tt.wantMatch)
			}
		})
	}
}

func TestJWT(t *testing.T) {
	id := Identity{UserID: 42, Username: "alice", Email: "alice@example.com", IsAdmin: true}
	tokenSecret := "validtokensecret"

	t.Run("Valid_JWT", func(t *testing.T) {
		tokenString, err := MakeJWT(id, "hybridchat", tokenSecret, 15*time.Second)
		require.NoError(t, err)

		claims, err := ValidateJWT(tokenString, tokenSecret)
		require.NoError(t, err)
		assert.Equal(t, "hybridchat", claims.Issuer)

		got, err := claims.Identity()
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("Incorrect_secret", func(t *testing.T) {
		tokenString, err := MakeJWT(id, "", tokenSecret, 15*time.Second)
		require.NoError(t, err)

		_, err = ValidateJWT(tokenString, "fakesecret")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired_token", func(t *testing.T) {
		tokenString, err := MakeJWT(id, "", tokenSecret, -1*time.Second)
		require.NoError(t, err)

		_, err = ValidateJWT(tokenString, tokenSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Corrupt_token", func(t *testing.T) {
		_, err := ValidateJWT("corrupttoken", tokenSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Missing_username", func(t *testing.T) {
		tokenString, err := MakeJWT(Identity{UserID: 1}, "", tokenSecret, time.Minute)
		require.NoError(t, err)

		_, err = ValidateJWT(tokenString, tokenSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerifier(t *testing.T) {
	v := Verifier{Secret: "s3cret"}
	token, err := MakeJWT(Identity{UserID: 7, Username: "bob"}, "", v.Secret, time.Minute)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 7, Username: "bob"}, got)

	_, err = v.Verify(token + "x")
	assert.Error(t, err)
}

func TestGetClaimsFromContext(t *testing.T) {
	t.Run("claims_present", func(t *testing.T) {
		want := &Claims{Username: "alice"}
		got, err := GetClaimsFromContext(WithClaims(context.Background(), want))
		require.NoError(t, err)
		assert.Same(t, want, got)
	})

	t.Run("wrong_type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), ClaimsKey, "not-claims")
		_, err := GetClaimsFromContext(ctx)
		assert.ErrorIs(t, err, ErrNoClaims)
	})

	t.Run("no_context", func(t *testing.T) {
		_, err := GetClaimsFromContext(context.Background())
		assert.ErrorIs(t, err, ErrNoClaims)
	})
}
