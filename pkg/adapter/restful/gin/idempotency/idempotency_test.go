// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package idempotency_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dataproducts/registry/pkg/adapter/restful/gin/idempotency"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCanonicalization(t *testing.T) {
	k1, err := idempotency.Key(
		"/data-products/", []byte(`{"a": 1, "b": {"y": 2, "x": 3}}`),
	)
	require.NoError(t, err)
	k2, err := idempotency.Key(
		"/data-products/", []byte(`{"b":{"x":3,"y":2},"a":1}`),
	)
	require.NoError(t, err)
	assert.Equal(t, k1, k2,
		"key order and whitespace must not affect the key")

	k3, err := idempotency.Key(
		"/data-products/", []byte(`{"a": 2, "b": {"y": 2, "x": 3}}`),
	)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := idempotency.Key(
		"/schemas/", []byte(`{"a": 1, "b": {"y": 2, "x": 3}}`),
	)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4, "the path is part of the key")
}

func TestKeyRejectsNonJSON(t *testing.T) {
	_, err := idempotency.Key("/data-products/", []byte("not json"))
	require.Error(t, err)
}

func newTestEngine(c *idempotency.Cache, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(c.Middleware())
	handler := func(ctx *gin.Context) {
		*calls++
		ctx.JSON(http.StatusOK, gin.H{"calls": *calls})
	}
	e.POST("/things", handler)
	e.GET("/things", handler)
	return e
}

func TestMiddlewareReplaysIdenticalPost(t *testing.T) {
	var calls int
	e := newTestEngine(idempotency.New(), &calls)
	body := `{"name": "x", "value": 1}`

	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(
		http.MethodPost, "/things", strings.NewReader(body),
	)
	e.ServeHTTP(w1, req1)
	require.Equal(t, http.StatusOK, w1.Code)
	assert.Empty(t, w1.Header().Get(idempotency.ReplayedHeader))
	assert.Equal(t, 1, calls)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(
		http.MethodPost, "/things",
		strings.NewReader(`{"value": 1, "name": "x"}`),
	)
	e.ServeHTTP(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "true", w2.Header().Get(idempotency.ReplayedHeader))
	assert.Equal(t, w1.Body.String(), w2.Body.String(),
		"the recorded response must be replayed verbatim")
	assert.Equal(t, 1, calls, "the handler must not run again")
}

func TestMiddlewareDistinguishesBodies(t *testing.T) {
	var calls int
	e := newTestEngine(idempotency.New(), &calls)

	for i, body := range []string{
		`{"name": "x"}`, `{"name": "y"}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPost, "/things", strings.NewReader(body),
		)
		e.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(idempotency.ReplayedHeader))
		assert.Equal(t, i+1, calls)
	}
}

func TestMiddlewareIgnoresReads(t *testing.T) {
	var calls int
	e := newTestEngine(idempotency.New(), &calls)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/things", nil)
		e.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(idempotency.ReplayedHeader))
	}
	assert.Equal(t, 2, calls)
}
