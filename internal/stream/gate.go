package stream

import (
	"context"
	"strconv"
	"strings"

	"github.com/open-feature/go-sdk/openfeature"
	"go.uber.org/zap"
)

// FlagLiveFeed is the kill switch for the live feed. When it evaluates
// false the manager lands in StateDisabled and never dials.
const FlagLiveFeed = "live_feed_enabled"

// FeatureGate answers "is the live feed enabled" through OpenFeature, so
// the backing flag system is swappable without touching the manager.
type FeatureGate struct {
	client *openfeature.Client
	log    *zap.Logger
}

func NewFeatureGate(log *zap.Logger) *FeatureGate {
	return &FeatureGate{
		client: openfeature.NewClient("radar-stream"),
		log:    log.With(zap.String("module", "featuregate")),
	}
}

// Enabled evaluates the live feed flag. Evaluation errors fail open: a
// broken flag backend must not take the feed down.
func (g *FeatureGate) Enabled(ctx context.Context) bool {
	val, err := g.client.BooleanValue(ctx, FlagLiveFeed, true, openfeature.EvaluationContext{})
	if err != nil {
		g.log.Warn("feature flag evaluation failed, defaulting to enabled", zap.Error(err))
		return true
	}
	return val
}

// EnvProvider resolves boolean flags from a static map, typically loaded
// from FEATURE_* environment variables at startup. It only understands
// booleans; every other flag type resolves to its default.
type EnvProvider struct {
	flags map[string]bool
}

// NewEnvProvider builds a provider from FEATURE_* environment entries.
// "FEATURE_LIVE_FEED_ENABLED=false" turns the flag "live_feed_enabled" off.
func NewEnvProvider(environ []string) *EnvProvider {
	flags := make(map[string]bool)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "FEATURE_") {
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			continue
		}
		flags[strings.ToLower(strings.TrimPrefix(name, "FEATURE_"))] = b
	}
	return &EnvProvider{flags: flags}
}

func (p *EnvProvider) Metadata() openfeature.Metadata {
	return openfeature.Metadata{Name: "radar-env"}
}

func (p *EnvProvider) Hooks() []openfeature.Hook {
	return nil
}

func (p *EnvProvider) BooleanEvaluation(_ context.Context, flag string, defaultValue bool, _ openfeature.FlattenedContext) openfeature.BoolResolutionDetail {
	if v, ok := p.flags[flag]; ok {
		return openfeature.BoolResolutionDetail{
			Value: v,
			ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
				Reason: openfeature.StaticReason,
			},
		}
	}
	return openfeature.BoolResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			Reason: openfeature.DefaultReason,
		},
	}
}

func (p *EnvProvider) StringEvaluation(_ context.Context, _ string, defaultValue string, _ openfeature.FlattenedContext) openfeature.StringResolutionDetail {
	return openfeature.StringResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			Reason: openfeature.DefaultReason,
		},
	}
}

func (p *EnvProvider) FloatEvaluation(_ context.Context, _ string, defaultValue float64, _ openfeature.FlattenedContext) openfeature.FloatResolutionDetail {
	return openfeature.FloatResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			Reason: openfeature.DefaultReason,
		},
	}
}

func (p *EnvProvider) IntEvaluation(_ context.Context, _ string, defaultValue int64, _ openfeature.FlattenedContext) openfeature.IntResolutionDetail {
	return openfeature.IntResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			Reason: openfeature.DefaultReason,
		},
	}
}

func (p *EnvProvider) ObjectEvaluation(_ context.Context, _ string, defaultValue interface{}, _ openfeature.FlattenedContext) openfeature.InterfaceResolutionDetail {
	return openfeature.InterfaceResolutionDetail{
		Value: defaultValue,
		ProviderResolutionDetail: openfeature.ProviderResolutionDetail{
			Reason: openfeature.DefaultReason,
		},
	}
}
