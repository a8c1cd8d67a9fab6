package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = 2 * time.Minute
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	ttl     time.Duration
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/notifications/", "/read"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchExact("/api/v1/checkout"), ttl: criticalIdempotencyTTL},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
	Pending     bool              `json:"pending,omitempty"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes listed in idempotencyRules. A key is reserved before the handler
// runs so concurrent duplicates are refused instead of executed twice. Server
// errors release the key so the client may retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, strings.TrimSuffix(r.URL.Path, "/"))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if idempotencyKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			pending, err := json.Marshal(idempotencyRecord{RequestHash: requestHash, Pending: true})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation"))
				return
			}
			reserved, err := store.SetNX(r.Context(), key, string(pending), inFlightTTL)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayStored(w, r, store, key, requestHash, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				if delErr := store.Del(context.WithoutCancel(r.Context()), key); delErr != nil {
					logError(r.Context(), logg, "release idempotency key", delErr)
				}
				return
			}

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			headers := map[string]string{}
			for _, name := range []string{"Content-Type", AnonymousIDHeader} {
				if v := rec.Header().Get(name); v != "" {
					headers[name] = v
				}
			}
			if len(headers) > 0 {
				record.Headers = headers
			}

			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				logError(r.Context(), logg, "marshal idempotency record", marshalErr)
				return
			}
			if setErr := store.Set(context.WithoutCancel(r.Context()), key, string(payload), ttl); setErr != nil {
				logError(r.Context(), logg, "persist idempotency record", setErr)
			}
		})
	}
}

func replayStored(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, requestHash string, logg *logger.Logger) {
	stored, err := store.Get(r.Context(), key)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if stored == "" {
		// Reservation expired between SetNX and Get.
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request is being processed, retry shortly"))
		return
	}
	record, err := decodeRecord(stored)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.Pending {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request is being processed, retry shortly"))
		return
	}
	writeStoredResponse(w, record)
}

func buildScope(r *http.Request) string {
	parts := []string{
		UserIDFromContext(r.Context()),
		AnonymousIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	for name, value := range record.Headers {
		if value != "" {
			w.Header().Set(name, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

// routeTTL matches the request path; middleware mounted with Use runs before
// chi resolves the final route pattern.
func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if rule.matcher(pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(pattern string) bool {
		return pattern == path
	}
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, prefix) && strings.HasSuffix(pattern, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
