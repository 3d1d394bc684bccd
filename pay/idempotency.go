package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	maxKeyedBody      = 1 << 20
)

type Keys interface {
	Reserve(ctx context.Context, rec *models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, user primitive.ObjectID, key string, status int, body []byte) error
	Release(ctx context.Context, user primitive.ObjectID, key string) error
}

func requestHash(r *http.Request, body []byte, user string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + user + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter tees the response so it can be stored for replay.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotent makes a mutating handler safe to retry. Requests carrying an
// Idempotency-Key run once per key; later requests with the same key and body
// get the stored response, a different body gets 409. Server errors release
// the key. Must run after Authenticate.
func Idempotent(keys Keys, logger *zap.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next(w, r, ps)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxKeyedBody))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			user := utils.GetUserIDFromRequest(r)
			now := time.Now().UTC()
			rec := &models.IdempotencyRecord{
				Key:         key,
				User:        user,
				Method:      r.Method,
				Path:        r.URL.Path,
				RequestHash: requestHash(r, body, user.Hex()),
				CreatedAt:   now,
				ExpiresAt:   now.Add(idempotencyTTL),
			}

			ctx := r.Context()
			stored, fresh, err := keys.Reserve(ctx, rec)
			if err != nil {
				utils.RespondWithErr(w, logger, err)
				return
			}
			if !fresh {
				replay(w, stored, rec.RequestHash)
				return
			}

			cw := &captureWriter{ResponseWriter: w}
			next(cw, r, ps)

			if cw.status >= http.StatusInternalServerError || cw.status == 0 {
				if err := keys.Release(ctx, user, key); err != nil {
					logger.Warn("release idempotency key", zap.String("key", key), zap.Error(err))
				}
				return
			}
			if err := keys.Complete(ctx, user, key, cw.status, cw.buf.Bytes()); err != nil {
				logger.Warn("store idempotent response", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

func replay(w http.ResponseWriter, stored *models.IdempotencyRecord, hash string) {
	switch {
	case stored.RequestHash != hash:
		utils.RespondWithError(w, http.StatusConflict, "Idempotency-Key reused with a different request")
	case !stored.Done():
		utils.RespondWithError(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}
