package jwt

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/permission"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	minHMACSecret       = 32
	maxLeeway           = 2 * time.Minute
	defaultMaxFutureIAT = 10 * time.Minute
)

var (
	// ErrInvalidToken is returned for every token that fails parsing or validation.
	ErrInvalidToken = errors.New("invalid token")

	errNoSigningKey = errors.New("manager has no signing key")
)

// Config configures a [Manager].
//
// For HS256, PrivateKey is the shared secret. For Ed25519, PrivateKey and
// PublicKey accept raw keys or PEM. VerifyKeys, when set, maps kid headers to
// verification keys and every token must then carry a known kid.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Claims carries the account id and role of the bearer.
type Claims struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies identity tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
	keys   keyring
	parser *jwt.Parser
	now    func() time.Time
}

// keyring holds keys decoded once at construction.
type keyring struct {
	sign   any
	verify any
	byKid  map[string]any
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("jwt: access TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("jwt: leeway must be within [0, %s]", maxLeeway)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = defaultMaxFutureIAT
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("jwt: MaxFutureIAT must be within (0, 24h]")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg, now: time.Now}
	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		m.method = jwt.SigningMethodHS256
		m.keys, err = hmacKeys(cfg)
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		m.keys, err = edKeys(cfg)
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}
	if err != nil {
		return nil, err
	}
	if cfg.KeyID != "" && m.keys.byKid != nil {
		if _, ok := m.keys.byKid[cfg.KeyID]; !ok {
			return nil, errors.New("jwt: KeyID is not present in VerifyKeys")
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)
	return m, nil
}

func hmacKeys(cfg Config) (keyring, error) {
	if len(cfg.PrivateKey) < minHMACSecret {
		return keyring{}, fmt.Errorf("jwt: hs256 secret must be at least %d bytes", minHMACSecret)
	}
	k := keyring{sign: cfg.PrivateKey, verify: cfg.PrivateKey}
	if len(cfg.VerifyKeys) > 0 {
		k.byKid = make(map[string]any, len(cfg.VerifyKeys))
		for kid, secret := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return keyring{}, errors.New("jwt: verify key map contains empty kid")
			}
			k.byKid[kid] = secret
		}
	}
	return k, nil
}

func edKeys(cfg Config) (keyring, error) {
	var k keyring
	if len(cfg.PrivateKey) > 0 {
		priv, err := decodeEdPrivate(cfg.PrivateKey)
		if err != nil {
			return keyring{}, err
		}
		k.sign = priv
	}
	if len(cfg.PublicKey) > 0 {
		pub, err := decodeEdPublic(cfg.PublicKey)
		if err != nil {
			return keyring{}, err
		}
		k.verify = pub
	}
	if len(cfg.VerifyKeys) > 0 {
		k.byKid = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return keyring{}, errors.New("jwt: verify key map contains empty kid")
			}
			pub, err := decodeEdPublic(raw)
			if err != nil {
				return keyring{}, fmt.Errorf("jwt: verify key %q: %w", kid, err)
			}
			k.byKid[kid] = pub
		}
	}
	if k.verify == nil && k.byKid == nil {
		return keyring{}, errors.New("jwt: ed25519 requires a public key or verify keys")
	}
	return k, nil
}

// Issue signs a token for uid with role.
func (m *Manager) Issue(uid string, role permission.Role) (string, error) {
	if uid == "" {
		return "", errors.New("jwt: uid is required")
	}
	if m.keys.sign == nil {
		return "", errNoSigningKey
	}

	now := m.now()
	claims := Claims{
		UID:  uid,
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.keys.sign)
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.AccessTTL
}

// Parse validates tokenStr and returns its claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, m.lookupKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UID == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidToken)
	}
	return claims, nil
}

func (m *Manager) lookupKey(t *jwt.Token) (any, error) {
	if t.Method.Alg() != m.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm %s", t.Method.Alg())
	}
	kid, _ := t.Header["kid"].(string)

	switch {
	case m.keys.byKid != nil:
		key, ok := m.keys.byKid[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	case m.config.KeyID != "" && kid != m.config.KeyID:
		return nil, fmt.Errorf("unknown kid %q", kid)
	default:
		return m.keys.verify, nil
	}
}

// Verify parses tokenStr into an identity. Failures wrap
// [caseguard.ErrUnauthenticated]. An unrecognized role claim yields
// RoleUnknown; the account record stays authoritative for role checks.
func (m *Manager) Verify(_ context.Context, tokenStr string) (caseguard.Identity, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return caseguard.Identity{}, errors.Join(caseguard.ErrUnauthenticated, err)
	}
	role, _ := permission.ParseRole(claims.Role)
	return caseguard.Identity{UserID: claims.UID, Role: role}, nil
}

func decodeEdPrivate(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(raw), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: private key is not ed25519")
	}
	return key, nil
}

func decodeEdPublic(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(raw), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	key, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: public key is not ed25519")
	}
	return key, nil
}
