package middleware

import (
	"context"
	"net/http"
	"strings"
)

type deploymentKey struct{}

// Deployment describes where the server runs. Pages outside production show
// the label as a badge.
type Deployment struct {
	Label      string
	Production bool
}

// NewDeployment classifies label. Empty labels mean "Development".
func NewDeployment(label string) Deployment {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Development"
	}
	switch strings.ToLower(label) {
	case "production", "prod":
		return Deployment{Label: label, Production: true}
	}
	return Deployment{Label: label}
}

// Environment stores the deployment on every request context.
func Environment(label string) func(http.Handler) http.Handler {
	d := NewDeployment(label)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deploymentKey{}, d)))
		})
	}
}

// DeploymentFromContext returns the request's deployment, Development when unset.
func DeploymentFromContext(ctx context.Context) Deployment {
	if d, ok := ctx.Value(deploymentKey{}).(Deployment); ok {
		return d
	}
	return NewDeployment("")
}

// EnvironmentFromContext returns the deployment label.
func EnvironmentFromContext(ctx context.Context) string {
	return DeploymentFromContext(ctx).Label
}

// IsProduction reports whether the request is served by production.
func IsProduction(ctx context.Context) bool {
	return DeploymentFromContext(ctx).Production
}
