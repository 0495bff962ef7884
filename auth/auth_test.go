package auth

import (
	"chatroom/domain"
	"chatroom/errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test_secret_for_presence_tokens")

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestResolver_Resolve(t *testing.T) {
	resolver := NewResolver(secret)
	valid, err := NewIssuer(secret).Issue(7, time.Hour)
	require.NoError(t, err)
	foreign, err := NewIssuer([]byte("another_secret")).Issue(7, time.Hour)
	require.NoError(t, err)
	expired, err := NewIssuer(secret).Issue(7, -time.Minute)
	require.NoError(t, err)

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	tests := []struct {
		name   string
		token  string
		want   domain.UserID
		wantOK bool
	}{
		{"Valid token", valid, 7, true},
		{"Empty credentials", "", domain.Unresolved, false},
		{"Garbage", "not-a-jwt", domain.Unresolved, false},
		{"Wrong signature", foreign, domain.Unresolved, false},
		{"Expired", expired, domain.Unresolved, false},
		{"Missing subject", signed(t, jwt.SigningMethodHS256, secret,
			jwt.RegisteredClaims{ExpiresAt: future}), domain.Unresolved, false},
		{"Non numeric subject", signed(t, jwt.SigningMethodHS256, secret,
			jwt.RegisteredClaims{Subject: "alice", ExpiresAt: future}), domain.Unresolved, false},
		{"Zero subject", signed(t, jwt.SigningMethodHS256, secret,
			jwt.RegisteredClaims{Subject: "0", ExpiresAt: future}), domain.Unresolved, false},
		{"Negative subject", signed(t, jwt.SigningMethodHS256, secret,
			jwt.RegisteredClaims{Subject: "-4", ExpiresAt: future}), domain.Unresolved, false},
		{"No expiration", signed(t, jwt.SigningMethodHS256, secret,
			jwt.RegisteredClaims{Subject: "7"}), domain.Unresolved, false},
		{"Other algorithm", signed(t, jwt.SigningMethodHS512, secret,
			jwt.RegisteredClaims{Subject: "7", ExpiresAt: future}), domain.Unresolved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, ok := resolver.Resolve(domain.Credentials{Token: tt.token})
			req.Equal(tt.wantOK, ok)
			req.Equal(tt.want, got)
		})
	}
}

func TestResolver_IsPure(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(secret)
	token, err := NewIssuer(secret).Issue(42, time.Hour)
	req.NoError(err)

	// Given the same credentials resolved several times
	// Then the outcome never changes
	for i := 0; i < 3; i++ {
		got, ok := resolver.Resolve(domain.Credentials{Token: token})
		req.True(ok)
		req.Equal(domain.UserID(42), got)
	}
}

func TestBearerToken(t *testing.T) {
	req := require.New(t)
	req.Equal("abc.def", BearerToken("Bearer abc.def"))
	req.Equal("abc.def", BearerToken("  Bearer abc.def  "))
	req.Empty(BearerToken("abc.def"))
	req.Empty(BearerToken("Basic dXNlcjpwYXNz"))
	req.Empty(BearerToken(""))
}

func TestValidateFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   RequestFrame
		wantErr bool
	}{
		{"Valid join", RequestFrame{Type: FrameJoin, ChatID: 9}, false},
		{"Valid leave", RequestFrame{Type: FrameLeave, ChatID: 9}, false},
		{"Valid send", RequestFrame{Type: FrameSend, ChatID: 9, Body: "hello"}, false},
		{"Missing type", RequestFrame{ChatID: 9}, true},
		{"Unknown type", RequestFrame{Type: "kick", ChatID: 9}, true},
		{"Zero chat id", RequestFrame{Type: FrameJoin, ChatID: 0}, true},
		{"Negative chat id", RequestFrame{Type: FrameLeave, ChatID: -1}, true},
		{"Send without body", RequestFrame{Type: FrameSend, ChatID: 9}, true},
		{"Body too long", RequestFrame{Type: FrameSend, ChatID: 9, Body: strings.Repeat("a", 4097)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateFrame(tt.frame)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidFrame)
			} else {
				req.NoError(err)
			}
		})
	}
}
