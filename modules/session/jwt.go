package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kilianp07/modai/core/module"
)

// Config is the nested config of session.jwt.
type Config struct {
	JWTSecret          string `json:"jwt_secret"`
	JWTAlgorithm       string `json:"jwt_algorithm"`
	JWTExpirationHours int    `json:"jwt_expiration_hours"`
	CookieSecure       *bool  `json:"cookie_secure"`
	CookieName         string `json:"cookie_name"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.JWTAlgorithm == "" {
		c.JWTAlgorithm = "HS256"
	}
	if c.JWTExpirationHours == 0 {
		c.JWTExpirationHours = 24
	}
	if c.CookieSecure == nil {
		secure := true
		c.CookieSecure = &secure
	}
	if c.CookieName == "" {
		c.CookieName = "session_token"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.JWTExpirationHours < 0 {
		return fmt.Errorf("jwt_expiration_hours must be positive")
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported jwt_algorithm %s", c.JWTAlgorithm)
	}
	return nil
}

// JWTManager stores sessions in an HMAC signed JWT cookie.
type JWTManager struct {
	cfg    Config
	method jwt.SigningMethod
	now    func() time.Time
}

// NewJWT is the module constructor for session.jwt.
func NewJWT(_ module.Dependencies, conf map[string]any) (module.Module, error) {
	var c Config
	if err := module.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewJWTManager(c)
}

// NewJWTManager validates cfg and returns a manager.
func NewJWTManager(cfg Config) (*JWTManager, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &JWTManager{cfg: cfg, method: jwt.GetSigningMethod(cfg.JWTAlgorithm), now: time.Now}, nil
}

func (m *JWTManager) ttl() time.Duration {
	return time.Duration(m.cfg.JWTExpirationHours) * time.Hour
}

// Start signs a token for userID. Extra claims cannot override user_id, exp or iat.
func (m *JWTManager) Start(w http.ResponseWriter, userID string, extra map[string]any) error {
	now := m.now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["user_id"] = userID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(m.ttl()).Unix()

	token, err := jwt.NewWithClaims(m.method, claims).SignedString([]byte(m.cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl().Seconds()),
		HttpOnly: true,
		Secure:   *m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Validate parses and verifies the session cookie.
func (m *JWTManager) Validate(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, ErrNoSession
	}
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) {
		return []byte(m.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{m.cfg.JWTAlgorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, errors.New("missing user_id claim"))
	}
	additional := make(map[string]any, len(claims))
	for k, v := range claims {
		switch k {
		case "user_id", "exp", "iat":
			continue
		}
		additional[k] = v
	}
	return Session{UserID: userID, Additional: additional}, nil
}

// End expires the session cookie.
func (m *JWTManager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   *m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
