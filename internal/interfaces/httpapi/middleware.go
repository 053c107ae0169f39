package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/leagr/leagr/internal/platform/logging"
	"github.com/leagr/leagr/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const (
	accessCodeHeader = "X-Access-Code"
	ownerTokenHeader = "X-Owner-Token"
)

// LeagueAuthorizer checks a plaintext access code against the league record.
type LeagueAuthorizer interface {
	Authorize(ctx context.Context, leagueID, code string) error
}

// HostMap resolves the tenant a request host routes to. The canonical form
// is <leagueID>.<baseHost>; extra hosts map full hostnames to a league id
// for custom domains.
type HostMap struct {
	baseHost string
	extra    map[string]string
}

func NewHostMap(baseHost string, extraHosts map[string]string) *HostMap {
	extra := make(map[string]string, len(extraHosts))
	for host, leagueID := range extraHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		leagueID = strings.ToLower(strings.TrimSpace(leagueID))
		if host == "" || leagueID == "" {
			continue
		}
		extra[host] = leagueID
	}
	return &HostMap{
		baseHost: strings.ToLower(strings.TrimSpace(baseHost)),
		extra:    extra,
	}
}

// Resolve returns the league id for a request host, stripping any port.
func (m *HostMap) Resolve(host string) (string, bool) {
	if stripped, _, err := net.SplitHostPort(host); err == nil {
		host = stripped
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", false
	}
	if leagueID, ok := m.extra[host]; ok {
		return leagueID, true
	}
	if m.baseHost == "" || host == m.baseHost {
		return "", false
	}
	leagueID, ok := strings.CutSuffix(host, "."+m.baseHost)
	if !ok || leagueID == "" || strings.Contains(leagueID, ".") {
		return "", false
	}
	return leagueID, true
}

// ResolveLeague derives the league from the request host and stores it in
// the request context for the handlers downstream.
func ResolveLeague(hosts *HostMap, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.ResolveLeague")
		defer span.End()

		leagueID, ok := hosts.Resolve(r.Host)
		if !ok {
			writeError(ctx, w, fmt.Errorf("%w: no league for host %q", usecase.ErrNotFound, r.Host))
			return
		}

		next.ServeHTTP(w, r.WithContext(withLeague(ctx, leagueID)))
	})
}

// RequireAccessCode gates mutating league routes behind the X-Access-Code
// header.
func RequireAccessCode(auth LeagueAuthorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireAccessCode")
		defer span.End()

		leagueID, ok := leagueFromContext(ctx)
		if !ok {
			writeError(ctx, w, fmt.Errorf("%w: league is missing from request context", usecase.ErrNotFound))
			return
		}

		code := strings.TrimSpace(r.Header.Get(accessCodeHeader))
		if code == "" {
			writeError(ctx, w, fmt.Errorf("%w: missing %s header", usecase.ErrAccessDenied, accessCodeHeader))
			return
		}
		if err := auth.Authorize(ctx, leagueID, code); err != nil {
			writeError(ctx, w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestLogging(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequestLogging")
		defer span.End()

		started := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		spanContext := trace.SpanContextFromContext(ctx)
		traceID := ""
		spanID := ""
		if spanContext.IsValid() {
			traceID = spanContext.TraceID().String()
			spanID = spanContext.SpanID().String()
		}

		logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"host", r.Host,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(started).Milliseconds(),
			"trace_id", traceID,
			"span_id", spanID,
		)
	})
}

func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "leagr-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

func shouldTraceRequest(path string) bool {
	normalized := strings.ToLower(strings.TrimSpace(path))
	switch normalized {
	case "/healthz", "/health", "/livez", "/readyz":
		return false
	default:
		return true
	}
}

func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := false
	allowMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		candidate := strings.TrimSpace(origin)
		if candidate == "" {
			continue
		}
		if candidate == "*" {
			allowAll = true
			continue
		}
		allowMap[candidate] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.CORS")
		defer span.End()

		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		allowed := allowAll
		if !allowed {
			_, allowed = allowMap[origin]
		}
		if allowed {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Accept,"+accessCodeHeader+","+ownerTokenHeader)
			w.Header().Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
