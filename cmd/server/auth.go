package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/TabDB"
	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/db"
)

// AuthConfig configures server authentication.
type AuthConfig struct {
	// Enabled requires AUTH JWT <token> before any other command.
	Enabled bool

	// JWTSecret is the shared secret for HMAC signed tokens.
	JWTSecret string

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string

	// NameClaim is the claim holding the committer name (default: "name").
	NameClaim string

	// EmailClaim is the claim holding the committer email (default: "email").
	EmailClaim string
}

// ConnectionState tracks the session of one connection.
type ConnectionState struct {
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
	engine        *db.Engine
}

// IsAuthenticated reports whether the connection may run statements.
// An expired token ends the session.
func (cs *ConnectionState) IsAuthenticated() bool {
	if !cs.authenticated {
		return false
	}
	return cs.tokenExpiry.IsZero() || time.Now().Before(cs.tokenExpiry)
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

// authenticate starts a fresh engine for identity. The selected database
// does not survive re-authentication.
func (cs *ConnectionState) authenticate(instance *TabDB.Instance, identity core.Identity) {
	cs.identity = &identity
	cs.authenticated = true
	cs.engine = instance.Engine(identity)
}

type authResult struct {
	identity  core.Identity
	expiresAt time.Time
	err       error
}

func (s *Server) validateJWT(tokenString string) authResult {
	if !s.authEnabled() {
		return authResult{err: errors.New("Authentication is not enabled.")}
	}

	nameClaim := s.authConfig.NameClaim
	if nameClaim == "" {
		nameClaim = "name"
	}
	emailClaim := s.authConfig.EmailClaim
	if emailClaim == "" {
		emailClaim = "email"
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if s.authConfig.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.authConfig.Issuer))
	}
	if s.authConfig.Audience != "" {
		options = append(options, jwt.WithAudience(s.authConfig.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if s.authConfig.JWTSecret == "" {
			return nil, errors.New("no JWT secret configured")
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, options...)
	if err != nil {
		return authResult{err: fmt.Errorf("Invalid token: %w", err)}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return authResult{err: errors.New("Invalid token.")}
	}

	name, _ := claims[nameClaim].(string)
	email, _ := claims[emailClaim].(string)
	if name == "" && email == "" {
		return authResult{err: fmt.Errorf("Token is missing the %s and %s claims.", nameClaim, emailClaim)}
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity:  core.Identity{Name: name, Email: email},
		expiresAt: expiresAt,
	}
}

func isAuthCommand(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && strings.EqualFold(fields[0], "AUTH")
}

// parseAuthCommand parses AUTH JWT <token>.
func parseAuthCommand(line string) (authType, token string, err error) {
	parts := strings.Fields(line)
	if len(parts) != 3 || !strings.EqualFold(parts[0], "AUTH") {
		return "", "", errors.New("Expected AUTH <type> <credentials>.")
	}

	authType = strings.ToUpper(parts[1])
	if authType != "JWT" {
		return "", "", fmt.Errorf("Unsupported authentication type %q.", parts[1])
	}
	return authType, parts[2], nil
}

// handleAuth processes an AUTH command and returns the response.
func (s *Server) handleAuth(line string, state *ConnectionState) string {
	_, token, err := parseAuthCommand(line)
	if err != nil {
		return "[ERROR] " + err.Error()
	}

	result := s.validateJWT(token)
	if result.err != nil {
		log.Printf("Authentication failed: %v", result.err)
		return "[ERROR] " + result.err.Error()
	}

	state.authenticate(s.instance, result.identity)
	state.tokenExpiry = result.expiresAt
	log.Printf("Authenticated as %s", result.identity)

	return "[OK]\n" + result.identity.String() + "\n"
}
