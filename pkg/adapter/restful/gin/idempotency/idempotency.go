// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package idempotency provides a process-wide request idempotency
// cache. The cache maps an idempotency key, derived from the request
// path and a digest of the canonicalized JSON request body, to a
// previously produced response. When a POST or PATCH request repeats
// with an identical body, the recorded response is replayed verbatim
// and annotated with an idempotent-replayed header, so clients may
// retry writes safely without producing duplicate side effects.
//
// The cache lives in the process memory, is bounded only by the
// process lifetime, and is not required to survive restarts.
package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// ReplayedHeader is the response header which marks a response that
// was served out of the cache instead of the downstream handler.
const ReplayedHeader = "idempotent-replayed"

// record is one cached response consisting of its status code,
// headers, and body bytes.
type record struct {
	status int
	header http.Header
	body   []byte
}

// Cache is a process-wide mapping from idempotency keys to recorded
// responses. It is safe for concurrent use; readers on a hit proceed
// concurrently while writers hold exclusive access for the
// read-miss/insert window.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]record
}

// New instantiates an empty idempotency cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]record),
	}
}

// Key derives the idempotency key for the given request path and JSON
// body as <path>#<hex sha256 of the canonicalized body>. The body is
// canonicalized by decoding and re-encoding it, so objects serialize
// with sorted keys and insignificant whitespace differences do not
// produce distinct keys. An empty (or whitespace only) body is hashed
// as no bytes; any other body which is not valid JSON fails.
func Key(path string, body []byte) (string, error) {
	canonical, err := canonicalize(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return path + "#" + hex.EncodeToString(sum[:]), nil
}

// canonicalize round-trips the body bytes through a generic decoded
// form. Go serializes map keys in sorted order, hence, two equivalent
// JSON objects yield identical canonical bytes.
func canonicalize(body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding request body: %w", err)
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("re-encoding request body: %w", err)
	}
	return canonical, nil
}

// lookup returns the recorded response for the key, if any.
func (c *Cache) lookup(key string) (record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[key]
	return rec, ok
}

// store records the response for the key, keeping an already recorded
// response intact if two requests raced past the lookup.
func (c *Cache) store(key string, rec record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = rec
}

// Middleware returns a gin middleware which consults the cache for
// POST and PATCH requests. On a hit the cached response is replayed
// with the ReplayedHeader annotation and the downstream handlers are
// skipped; on a miss the downstream response is captured and recorded
// under the key before returning. Other request methods and requests
// with non-empty bodies which are not valid JSON pass through
// untouched; requests with an empty body are cached like the others.
func (c *Cache) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if m := ctx.Request.Method; m != http.MethodPost &&
			m != http.MethodPatch {
			ctx.Next()
			return
		}
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
		key, err := Key(ctx.Request.URL.Path, body)
		if err != nil {
			// the handler is responsible to reject a non-JSON body
			ctx.Next()
			return
		}
		if rec, ok := c.lookup(key); ok {
			replay(ctx, rec)
			return
		}
		cw := &captureWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = cw
		ctx.Next()
		c.store(key, record{
			status: cw.Status(),
			header: cw.Header().Clone(),
			body:   cw.buf.Bytes(),
		})
	}
}

// replay writes the recorded response out, annotated with the
// ReplayedHeader, and aborts the handlers chain.
func replay(ctx *gin.Context, rec record) {
	header := ctx.Writer.Header()
	for name, values := range rec.header {
		for _, v := range values {
			header.Add(name, v)
		}
	}
	header.Set(ReplayedHeader, "true")
	ctx.Writer.WriteHeader(rec.status)
	_, _ = ctx.Writer.Write(rec.body)
	ctx.Abort()
}

// captureWriter duplicates every written body byte into a buffer, so
// the downstream response may be recorded while it is streamed to the
// client unchanged.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (cw *captureWriter) Write(data []byte) (int, error) {
	cw.buf.Write(data)
	return cw.ResponseWriter.Write(data)
}

func (cw *captureWriter) WriteString(s string) (int, error) {
	cw.buf.WriteString(s)
	return cw.ResponseWriter.WriteString(s)
}
