// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package middleware lists the cross-cutting gin middlewares which
// are expected to be enabled/disabled by the configuration settings,
// namely the CORS headers handling and the bearer-token
// authentication check.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS returns a middleware which answers cross-origin requests for
// the configured origins. A request from a listed origin (or any
// origin, if the single "*" entry is configured) receives the
// Access-Control-Allow-* headers and an OPTIONS preflight request is
// answered with 204 without reaching the resource handlers.
func CORS(origins []string) gin.HandlerFunc {
	allowAny := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		_, ok := allowed[origin]
		if origin != "" && (allowAny || ok) {
			h := c.Writer.Header()
			if allowAny {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set(
				"Access-Control-Allow-Methods",
				"GET,POST,PUT,PATCH,DELETE,OPTIONS",
			)
			h.Set(
				"Access-Control-Allow-Headers",
				"Authorization,Content-Type",
			)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
