package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	radarerrors "github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/errors"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/json"
)

// Principal is the verified identity and plan attached to a request.
type Principal struct {
	Subject string
	UserID  string
	Plan    string
}

// Resolver turns an inbound request into a verified principal. Resolution
// failures are reported as ErrUnauthenticated (no usable credential) or
// ErrUnverified (credential present, subject unverified); any other error
// means the identity service itself could not be consulted.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*Principal, error)
}

// sessionCookie is the cookie the web client stores its session token in.
const sessionCookie = "__session"

// introspectTimeout bounds each identity service call.
const introspectTimeout = 5 * time.Second

// IntrospectionResolver verifies caller credentials against the identity
// service. Every request is introspected and principals are never cached,
// so a revoked session is rejected on its next request.
type IntrospectionResolver struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewIntrospectionResolver builds a resolver posting to the given
// introspection endpoint.
func NewIntrospectionResolver(endpoint string, log *zap.Logger) *IntrospectionResolver {
	return &IntrospectionResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: introspectTimeout},
		log:      log,
	}
}

type introspectionReply struct {
	Active   bool                   `json:"active"`
	Verified bool                   `json:"verified"`
	Claims   map[string]interface{} `json:"claims"`
}

type principalClaims struct {
	Subject string `mapstructure:"sub"`
	UserID  string `mapstructure:"uid"`
	Plan    string `mapstructure:"plan"`
}

// Resolve extracts the caller credential (Authorization bearer, falling back
// to the session cookie) and introspects it.
func (ir *IntrospectionResolver) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	credential := callerCredential(r)
	if credential == "" {
		return nil, radarerrors.ErrUnauthenticated
	}

	payload, err := json.Marshal(map[string]string{"credential": credential})
	if err != nil {
		return nil, fmt.Errorf("encode introspection request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ir.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ir.client.Do(req)
	if err != nil {
		ir.log.Warn("identity service unreachable", zap.Error(err))
		return nil, fmt.Errorf("introspect credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, radarerrors.ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		ir.log.Warn("identity service returned unexpected status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("introspection returned status %d", resp.StatusCode)
	}

	var reply introspectionReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode introspection reply: %w", err)
	}
	if !reply.Active {
		return nil, radarerrors.ErrUnauthenticated
	}
	if !reply.Verified {
		return nil, radarerrors.ErrUnverified
	}

	var claims principalClaims
	if err := mapstructure.Decode(reply.Claims, &claims); err != nil {
		return nil, fmt.Errorf("decode principal claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, radarerrors.ErrUnauthenticated
	}
	return &Principal{Subject: claims.Subject, UserID: claims.UserID, Plan: claims.Plan}, nil
}

// Ping reports whether the identity service is reachable. Any HTTP response
// counts as reachable; only transport failures are errors.
func (ir *IntrospectionResolver) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ir.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := ir.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity service unreachable: %w", err)
	}
	return resp.Body.Close()
}

// callerCredential pulls the caller's own credential off the request,
// preferring the Authorization header over the session cookie.
func callerCredential(r *http.Request) string {
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the token from the Authorization header.
func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
