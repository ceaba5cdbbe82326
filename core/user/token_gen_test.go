package user

import (
	"strings"
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := tokenGenerator{secretKey: "secret", timeout: 3 * 24 * time.Hour}

	now := time.Now()
	usr := User{
		ID:        "a4c8e1f2-5b7d-4e0a-9c3b-1d2e3f4a5b6c",
		Name:      "T",
		Email:     "t@test.test",
		Role:      RoleParent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := gen.makeToken(usr)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := gen.makeToken(usr)
	nowFunc = time.Now // reset

	// a new login invalidates previous tokens
	loggedAgain := usr
	loggedAgain.LastLogin = now.Add(time.Hour)

	newPassword := usr
	_ = newPassword.SetPassword("other-pwd")

	otherKey := tokenGenerator{secretKey: "other", timeout: gen.timeout}

	tests := []struct {
		name    string
		gen     tokenGenerator
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", gen: gen, usr: usr, wantErr: errInvalidToken},
		{name: "no separator", gen: gen, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "no day", gen: gen, usr: usr, token: ".c2lnbmF0dXJl", wantErr: errInvalidToken},
		{name: "invalid day", gen: gen, usr: usr, token: "k3j!.c2lnbmF0dXJl", wantErr: errInvalidToken},
		{name: "negative day", gen: gen, usr: usr, token: "-k3j.c2lnbmF0dXJl", wantErr: errInvalidToken},
		{name: "forged signature", gen: gen, usr: usr, token: strings.SplitN(validToken, ".", 2)[0] + ".c2lnbmF0dXJl", wantErr: errInvalidToken},
		{name: "other day", gen: gen, usr: usr, token: "k3j." + strings.SplitN(validToken, ".", 2)[1], wantErr: errInvalidToken},
		{name: "expired token", gen: gen, usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "user logged in since", gen: gen, usr: loggedAgain, token: validToken, wantErr: errInvalidToken},
		{name: "other secret key", gen: otherKey, usr: usr, token: validToken, wantErr: errInvalidToken},
		{name: "password changed", gen: gen, usr: newPassword, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", gen: gen, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.gen.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "a4c8e1f2-5b7d-4e0a-9c3b-1d2e3f4a5b6c"}
	uid := EncodeUID(usr)
	got, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if got != usr.ID {
		t.Errorf("decodeUID() = %v, want %v", got, usr.ID)
	}
	if _, err = decodeUID("%%%"); err == nil {
		t.Error("decodeUID() should fail on invalid input")
	}
}
