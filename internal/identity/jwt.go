package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
)

// JWTAuthenticator valida tokens HS256 emitidos por el identity provider
// (compatible con tokens estilo Supabase: app_metadata.is_msp_admin).
type JWTAuthenticator struct {
	secret     []byte
	issuer     string
	cookieName string
	leeway     time.Duration
}

// JWTConfig parámetros del autenticador.
type JWTConfig struct {
	Secret     string
	Issuer     string // vacío = no se valida
	CookieName string // cookie alternativa al header Authorization
}

// NewJWTAuthenticator crea el autenticador. Secret vacío es un error de config.
func NewJWTAuthenticator(cfg JWTConfig) (*JWTAuthenticator, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("identity: jwt secret is required")
	}
	return &JWTAuthenticator{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		cookieName: cfg.CookieName,
		leeway:     30 * time.Second,
	}, nil
}

// TokenFromRequest extrae el token de "Authorization: Bearer" o de la cookie de sesión.
func (a *JWTAuthenticator) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if a.cookieName != "" {
		if c, err := r.Cookie(a.cookieName); err == nil {
			return strings.TrimSpace(c.Value)
		}
	}
	return ""
}

// Authenticate valida el token y mapea sus claims a un Principal.
// Cualquier fallo se reporta como ErrUnauthenticated (envuelto).
func (a *JWTAuthenticator) Authenticate(token string) (*repository.Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(a.leeway),
		jwtv5.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(a.issuer))
	}

	claims := jwtv5.MapClaims{}
	_, err := jwtv5.ParseWithClaims(token, claims, func(*jwtv5.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return principalFromClaims(claims)
}

// FromRequest combina TokenFromRequest + Authenticate.
func (a *JWTAuthenticator) FromRequest(r *http.Request) (*repository.Principal, error) {
	return a.Authenticate(a.TokenFromRequest(r))
}

// Sign emite un token para p. Lo usan la CLI (tokens de desarrollo) y los tests.
func (a *JWTAuthenticator) Sign(p repository.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtv5.MapClaims{
		"sub":                     p.ID,
		"email":                   p.Email,
		"iat":                     now.Unix(),
		"exp":                     now.Add(ttl).Unix(),
		"app_metadata":            map[string]any{"is_msp_admin": p.IsMSPAdmin},
		"default_organization_id": p.DefaultOrganizationID,
		"default_team_id":         p.DefaultTeamID,
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(a.secret)
}

func principalFromClaims(c jwtv5.MapClaims) (*repository.Principal, error) {
	sub, _ := c["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthenticated)
	}
	p := &repository.Principal{ID: sub}
	p.Email, _ = c["email"].(string)
	p.DefaultOrganizationID = claimString(c, "default_organization_id")
	p.DefaultTeamID = claimString(c, "default_team_id")

	// app_metadata.is_msp_admin tiene prioridad sobre el claim plano
	if md, ok := c["app_metadata"].(map[string]any); ok {
		if v, ok := md["is_msp_admin"].(bool); ok {
			p.IsMSPAdmin = v
			return p, nil
		}
	}
	p.IsMSPAdmin, _ = c["is_msp_admin"].(bool)
	return p, nil
}

// claimString busca key en la raíz o en user_metadata.
func claimString(c jwtv5.MapClaims, key string) string {
	if v, ok := c[key].(string); ok && v != "" {
		return v
	}
	if md, ok := c["user_metadata"].(map[string]any); ok {
		v, _ := md[key].(string)
		return v
	}
	return ""
}
