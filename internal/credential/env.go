package credential

import (
	"context"

	"go.uber.org/zap"

	"github.com/552020/futura-prealpha/pkg/metrics"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvResolver reads the token from an environment variable at invocation time.
// An unset variable yields an empty token, never an error.
type EnvResolver struct {
	name   string
	lookup LookupFunc
	logger *zap.Logger
}

func NewEnvResolver(name string, lookup LookupFunc, logger *zap.Logger) *EnvResolver {
	if name == "" {
		name = TokenName
	}
	return &EnvResolver{name: name, lookup: lookup, logger: logger}
}

func (r *EnvResolver) Resolve(_ context.Context, _ string) (string, error) {
	token, _ := r.lookup(r.name)

	present := token != ""
	r.logger.Info("Auth token resolved from environment",
		zap.String("variable", r.name),
		zap.Bool("present", present),
	)
	result := "found"
	if !present {
		result = "empty"
	}
	metrics.RecordCredentialLookup(StrategyEnv, r.name, result)

	return token, nil
}
