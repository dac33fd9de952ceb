package jwt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm for both token classes.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// tokenClass separates the access and refresh key namespaces. A token signed
// under one class never verifies under the other, even with HS256 keys of
// equal length, because the signing keys must differ.
type tokenClass int

const (
	classAccess tokenClass = iota
	classRefresh
)

// Config holds signing material and validation settings for the manager.
// Access and refresh tokens use distinct keys; for Ed25519 each class takes
// its own keypair (raw 32/64-byte keys or PEM).
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod SigningMethod

	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer string
	Leeway time.Duration
}

// Manager signs and verifies both token classes. Safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the verified payload of an access token. UID is the
// authoritative user identity for guarded requests.
type AccessClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// RefreshClaims is the verified payload of a refresh token. The registered
// ID claim (jti) is unique per issuance.
type RefreshClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// NewManager validates the config and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.AccessPrivateKey) == 0 || len(cfg.RefreshPrivateKey) == 0 {
			return nil, errors.New("hs256 requires access and refresh keys")
		}
		if bytes.Equal(cfg.AccessPrivateKey, cfg.RefreshPrivateKey) {
			return nil, errors.New("access and refresh keys must differ")
		}
	case MethodEd25519:
		for _, key := range [][]byte{cfg.AccessPrivateKey, cfg.RefreshPrivateKey} {
			if _, err := parseEdPrivateKey(key); err != nil {
				return nil, err
			}
		}
		for _, key := range [][]byte{cfg.AccessPublicKey, cfg.RefreshPublicKey} {
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, err
			}
		}
		if bytes.Equal(cfg.AccessPrivateKey, cfg.RefreshPrivateKey) {
			return nil, errors.New("access and refresh keys must differ")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

// CreateAccess signs a short-lived access token for the user.
func (m *Manager) CreateAccess(uid string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	return m.sign(claims, classAccess)
}

// CreateRefresh signs a long-lived refresh token for the user and returns it
// with its claims. The jti is a fresh UUID per issuance.
func (m *Manager) CreateRefresh(uid string) (string, *RefreshClaims, error) {
	now := time.Now()
	claims := RefreshClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token, err := m.sign(claims, classRefresh)
	if err != nil {
		return "", nil, err
	}

	return token, &claims, nil
}

// ParseAccess verifies signature, expiry, and issuer under the access key.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, classAccess); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies signature, expiry, and issuer under the refresh key.
// Verified claims are the trusted source of the user ID during rotation.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, classRefresh); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) sign(claims jwt.Claims, class tokenClass) (string, error) {
	token := jwt.NewWithClaims(m.method(), claims)

	key, err := m.signKey(class)
	if err != nil {
		return "", err
	}

	return token.SignedString(key)
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, class tokenClass) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey(class)
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}

	return nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) classKeys(class tokenClass) (private, public []byte) {
	if class == classRefresh {
		return m.config.RefreshPrivateKey, m.config.RefreshPublicKey
	}
	return m.config.AccessPrivateKey, m.config.AccessPublicKey
}

func (m *Manager) signKey(class tokenClass) (interface{}, error) {
	private, _ := m.classKeys(class)
	switch m.config.SigningMethod {
	case MethodHS256:
		return private, nil
	default:
		return parseEdPrivateKey(private)
	}
}

func (m *Manager) verifyKey(class tokenClass) (interface{}, error) {
	private, public := m.classKeys(class)
	switch m.config.SigningMethod {
	case MethodHS256:
		return private, nil
	default:
		return parseEdPublicKey(public)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
