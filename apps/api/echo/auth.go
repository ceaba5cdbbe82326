package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

const (
	contextPrincipalKey = "principal"
	contextUserKey      = "user"
	contextClaimsKey    = "claims"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt   int64  `json:"oriat,omitempty"`
	Role           string `json:"role,omitempty"`
	OrganizationID string `json:"org,omitempty"`
}

// tokenAuth signs and verifies the bearer tokens of the mobile clients.
type tokenAuth struct {
	key          []byte
	issuer       string
	expiration   time.Duration
	refreshDelta time.Duration
	nowFunc      func() time.Time
}

func newTokenAuth(conf *core.Config) *tokenAuth {
	return &tokenAuth{
		key:          []byte(conf.SecretKey),
		issuer:       conf.AppName,
		expiration:   conf.Server.JWTExpirationDelta,
		refreshDelta: conf.Server.JWTRefreshExpirationDelta,
		nowFunc:      time.Now,
	}
}

// NewClaims returns the claims of usr. origIat is the issue time of the first token of a refresh chain.
func (ta *tokenAuth) NewClaims(usr user.User, origIat ...int64) *Claims {
	now := ta.nowFunc()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ta.issuer,
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ta.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt:   oriat,
		Role:           usr.Role,
		OrganizationID: usr.OrganizationID,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (ta *tokenAuth) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ta.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ta *tokenAuth) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(*jwt.Token) (interface{}, error) { return ta.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ta.issuer),
		jwt.WithTimeFunc(ta.nowFunc),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// refresh returns a new token for usr unless the refresh window of the original token is over.
func (ta *tokenAuth) refresh(usr user.User, claims Claims) (string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ta.refreshDelta)
	if ta.nowFunc().After(expTime) {
		return "", errRefreshExpired
	}
	return ta.GenerateToken(ta.NewClaims(usr, claims.OrigIssuedAt))
}

func bearerToken(req *http.Request) (string, bool) {
	auth := req.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):], true
	}
	return "", false
}

// authMiddleware resolves the Principal of the request from its bearer token or its session cookie.
// Anonymous requests go through; requireAuth rejects them where needed.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		var userID string

		if token, ok := bearerToken(req); ok {
			claims, err := s.tokens.parse(token)
			if err != nil {
				return errInvalidToken
			}
			ctx.Set(contextClaimsKey, *claims)
			userID = claims.Subject
		} else if cookie, err := req.Cookie(s.conf.Server.SessionCookieName); err == nil && cookie.Value != "" {
			id, err := s.deps.Sessions.Get(req.Context(), cookie.Value)
			if err != nil {
				if errors.Cause(err) != core.ErrSessionNotFound {
					return errors.Wrap(err, "loading session")
				}
				s.clearSessionCookie(ctx)
			}
			userID = id
		}
		if userID == "" {
			return next(ctx)
		}

		usr, err := s.deps.UserSvc.GetByID(req.Context(), userID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errInvalidToken
			}
			return errors.Wrap(err, "finding user by ID")
		}
		if !usr.IsActive {
			return user.ErrAccountDeactivated
		}
		ctx.Set(contextUserKey, usr)
		ctx.Set(contextPrincipalKey, usr.Principal())
		return next(ctx)
	}
}

func (s *Server) setSessionCookie(ctx echo.Context, sessionID string) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.conf.Server.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(s.conf.Server.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.conf.Server.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.conf.Server.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.conf.Server.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// principalOf returns the caller of the request; the zero Principal when anonymous.
func principalOf(ctx echo.Context) user.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(user.Principal)
	return p
}

func contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
