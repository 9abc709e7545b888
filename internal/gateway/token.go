package gateway

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// tokenIssuer identifies credentials minted by this gateway.
const tokenIssuer = "radar-gateway"

// Minter signs short-lived downstream credentials. The backend trusts only
// tokens signed here; caller credentials never cross the gateway.
type Minter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMinter returns a Minter signing with secret, issuing tokens valid for ttl.
func NewMinter(secret []byte, ttl time.Duration) *Minter {
	return &Minter{secret: secret, ttl: ttl, now: time.Now}
}

// Mint signs an HS256 token carrying the principal's subject, user id and plan.
func (m *Minter) Mint(p *Principal) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"iss":  tokenIssuer,
		"sub":  p.Subject,
		"uid":  p.UserID,
		"plan": p.Plan,
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		metrics.TokenErrors.WithLabelValues("mint").Inc()
		return "", fmt.Errorf("mint downstream credential: %w", err)
	}
	return signed, nil
}
