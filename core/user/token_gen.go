package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	tokenSalt = []byte("lanes/password-reset")
	nowFunc   = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

const secondsPerDay = 24 * 60 * 60

// tokenGenerator makes and verifies password reset tokens of the form "<day>.<signature>":
// day is the UTC day of issue (days since the Unix epoch, base 36) and the signature
// is an HMAC of the user's id, password hash, last login and day.
// Changing the password or logging in again invalidates every token issued before.
type tokenGenerator struct {
	secretKey string
	timeout   time.Duration
}

// EncodeUID encodes the user ID for password reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(id), nil
}

func dayOf(t time.Time) int64 {
	return t.UTC().Unix() / secondsPerDay
}

func (g tokenGenerator) makeToken(usr User) (string, error) {
	return g.tokenFor(usr, dayOf(nowFunc())), nil
}

func (g tokenGenerator) verifyToken(usr User, token string) error {
	dayStr, _, ok := strings.Cut(token, ".")
	if !ok || dayStr == "" {
		return errInvalidToken
	}
	day, err := strconv.ParseInt(dayStr, 36, 64)
	if err != nil || day < 0 {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(g.tokenFor(usr, day)), []byte(token)) {
		return errInvalidToken
	}
	if dayOf(nowFunc())-day > int64(g.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) tokenFor(usr User, day int64) string {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), g.secretKey...))
	mac := hmac.New(sha256.New, key[:])

	var buf [8]byte
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		binary.BigEndian.PutUint64(buf[:], uint64(usr.LastLogin.UTC().UnixNano()))
		mac.Write(buf[:])
	}
	binary.BigEndian.PutUint64(buf[:], uint64(day))
	mac.Write(buf[:])

	return strconv.FormatInt(day, 36) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
