package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Class distinguishes the three token shapes the issuer mints. Verification
// rejects class confusion: a refresh token never authenticates a request and a
// session token never refreshes one.
type Class string

const (
	// ClassSession is the short-lived bearer credential proving an active login.
	ClassSession Class = "session"
	// ClassRefresh is the long-lived credential used only to mint session tokens.
	ClassRefresh Class = "refresh"
	// ClassTwoStep is the secondary credential consumed by the two-step verifier.
	ClassTwoStep Class = "twostep"
)

var (
	// ErrTokenExpired marks a structurally valid, correctly signed token whose
	// expiry has passed. Kept distinct from ErrTokenMalformed for logging only;
	// callers must reject both identically.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed marks a token that failed structural or signature
	// checks, including class confusion.
	ErrTokenMalformed = errors.New("token malformed or forged")
)

// SessionClaims is the session-token claim shape: enough denormalized identity
// for a request to proceed without a principal lookup.
type SessionClaims struct {
	SessionID     string `json:"sid"`
	PrincipalID   string `json:"pid"`
	PrincipalKind string `json:"pk"`
	Email         string `json:"eml,omitempty"`
	Role          string `json:"rol,omitempty"`
	PlanTier      string `json:"pln,omitempty"`
	TokenClass    Class  `json:"cls"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh-token claim shape: identity only.
type RefreshClaims struct {
	RefreshID     string `json:"rid"`
	PrincipalID   string `json:"pid"`
	PrincipalKind string `json:"pk"`
	TokenClass    Class  `json:"cls"`
	jwt.RegisteredClaims
}

// TwoStepClaims is the secondary-token claim shape used by the two-step
// verifier: identity only, short-lived.
type TwoStepClaims struct {
	PrincipalID   string `json:"pid"`
	PrincipalKind string `json:"pk"`
	TokenClass    Class  `json:"cls"`
	jwt.RegisteredClaims
}

// Config for the issuer. Secret is the process-wide HS256 key.
type Config struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	RefreshTTL time.Duration
	TwoStepTTL time.Duration
	Leeway     time.Duration

	// now is swappable for boundary tests.
	now func() time.Time
}

// Issuer creates and verifies the signed bearer tokens. It has no side
// effects: every method is a pure function over its input and the process
// secret.
type Issuer struct {
	config Config
}

// NewIssuer validates the signing configuration. A short or missing secret is
// a process-level misconfiguration and must abort startup.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.SessionTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.TwoStepTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Issuer{config: cfg}, nil
}

// IssueSession mints a session token and returns it with its expiry instant.
func (i *Issuer) IssueSession(sessionID, principalID, principalKind, email, role, planTier string) (string, time.Time, error) {
	now := i.config.now()
	expiresAt := now.Add(i.config.SessionTTL)

	claims := SessionClaims{
		SessionID:     sessionID,
		PrincipalID:   principalID,
		PrincipalKind: principalKind,
		Email:         email,
		Role:          role,
		PlanTier:      planTier,
		TokenClass:    ClassSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueRefresh mints a refresh token carrying identity only.
func (i *Issuer) IssueRefresh(refreshID, principalID, principalKind string) (string, time.Time, error) {
	now := i.config.now()
	expiresAt := now.Add(i.config.RefreshTTL)

	claims := RefreshClaims{
		RefreshID:     refreshID,
		PrincipalID:   principalID,
		PrincipalKind: principalKind,
		TokenClass:    ClassRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueTwoStep mints the secondary token consumed by the two-step verifier.
func (i *Issuer) IssueTwoStep(principalID, principalKind string) (string, time.Time, error) {
	now := i.config.now()
	expiresAt := now.Add(i.config.TwoStepTTL)

	claims := TwoStepClaims{
		PrincipalID:   principalID,
		PrincipalKind: principalKind,
		TokenClass:    ClassTwoStep,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifySession checks signature, expiry, and class of a session token.
func (i *Issuer) VerifySession(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenClass != ClassSession || claims.SessionID == "" || claims.PrincipalID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry, and class of a refresh token.
func (i *Issuer) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenClass != ClassRefresh || claims.RefreshID == "" || claims.PrincipalID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyTwoStep checks signature, expiry, and class of a two-step token.
func (i *Issuer) VerifyTwoStep(tokenStr string) (*TwoStepClaims, error) {
	claims := &TwoStepClaims{}
	if err := i.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenClass != ClassTwoStep || claims.PrincipalID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (i *Issuer) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.config.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}
	if !parsed.Valid {
		return ErrTokenMalformed
	}
	return nil
}
