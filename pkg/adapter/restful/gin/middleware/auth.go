// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dataproducts/registry/pkg/adapter/hash/scram"
	scrami "github.com/dataproducts/registry/pkg/core/scram"
	"github.com/gin-gonic/gin"
)

// tokenVerifier checks presented API tokens against one stored hash
// string. The stored string follows the standard scram hash format,
//
//	SCRAM-{SHA-X}${iters}:{b64-salt}${b64-storedKey}:{b64-serverKey}
//
// so the salt and iteration count can be recovered from it and the
// hash of a presented token can be recomputed deterministically and
// compared in constant time. The plaintext token itself is never kept
// in the configuration file.
type tokenVerifier struct {
	hash   string        // the stored scram hash string
	salt   string        // base64 salt recovered from the hash
	iters  int           // iteration count recovered from the hash
	hasher scrami.Hasher // mechanism matching the hash prefix
}

// newTokenVerifier parses the tokenHash stored hash string, resolving
// its mechanism name to a SCRAM-SHA-256 or SCRAM-SHA-1 hasher.
func newTokenVerifier(tokenHash string) (*tokenVerifier, error) {
	name, rest, found := strings.Cut(tokenHash, "$")
	if !found {
		return nil, fmt.Errorf("token hash has no mechanism prefix")
	}
	var hasher scrami.Hasher
	switch name {
	case "SCRAM-SHA-256":
		hasher = scram.SHA256()
	case "SCRAM-SHA-1":
		hasher = scram.SHA1()
	default:
		return nil, fmt.Errorf("unsupported mechanism: %q", name)
	}
	params, _, found := strings.Cut(rest, "$")
	if !found {
		return nil, fmt.Errorf("token hash has no keys part")
	}
	itersStr, salt, found := strings.Cut(params, ":")
	if !found {
		return nil, fmt.Errorf("token hash has no salt part")
	}
	iters, err := strconv.Atoi(itersStr)
	if err != nil {
		return nil, fmt.Errorf("non-numeric iterations count: %w", err)
	}
	return &tokenVerifier{
		hash:   tokenHash,
		salt:   salt,
		iters:  iters,
		hasher: hasher,
	}, nil
}

// verify recomputes the hash of the presented token with the stored
// salt and iterations count and compares it with the stored hash in
// constant time.
func (tv *tokenVerifier) verify(token string) bool {
	computed, err := tv.hasher.Hash(token, tv.salt, tv.iters)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(
		[]byte(computed), []byte(tv.hash),
	) == 1
}

// BearerToken returns a middleware which requires every request to
// carry an Authorization header with a bearer token matching the
// tokenHash stored hash. Requests without the header, with a
// malformed header, or with a non-matching token are rejected with
// a 401 response.
func BearerToken(tokenHash string) (gin.HandlerFunc, error) {
	tv, err := newTokenVerifier(tokenHash)
	if err != nil {
		return nil, fmt.Errorf("parsing token hash: %w", err)
	}
	return func(c *gin.Context) {
		authHdr := c.Request.Header.Get("Authorization")
		if authHdr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "missing authorization header",
			})
			return
		}
		token, found := strings.CutPrefix(authHdr, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "authorization header is malformed",
			})
			return
		}
		if !tv.verify(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "invalid bearer token",
			})
			return
		}
		c.Next()
	}, nil
}
