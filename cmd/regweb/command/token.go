// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dataproducts/registry/pkg/adapter/hash/scram"
	scrami "github.com/dataproducts/registry/pkg/core/scram"
	"github.com/spf13/cobra"
)

// tokenHashIters is the PBKDF2 iterations count which is used for
// hashing bearer tokens, as recommended by RFC 7677.
const tokenHashIters = 15000

var tokenMechanism string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token management actions",
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a bearer token for the auth.token-hash setting",
	Long: `Hash a bearer token for the auth.token-hash setting.
The plaintext token is read from the standard input, so it does not
appear in the shell history or the process arguments list, and its
scram hash string is printed to the standard output. That hash may be
stored in the configuration file (or the AUTH_TOKEN_HASH environment
variable) while the plaintext token is handed to the API clients.`,
	RunE: tokenHash,
	Args: cobra.NoArgs,
}

func tokenHash(_ *cobra.Command, _ []string) error {
	var hasher scrami.Hasher
	switch tokenMechanism {
	case "scram-sha-256":
		hasher = scram.SHA256()
	case "scram-sha-1":
		hasher = scram.SHA1()
	default:
		return fmt.Errorf(
			"unsupported mechanism: %q", tokenMechanism,
		)
	}
	reader := bufio.NewReader(os.Stdin)
	token, err := reader.ReadString('\n')
	if err != nil && token == "" {
		return fmt.Errorf("reading token from stdin: %w", err)
	}
	token = strings.TrimRight(token, "\r\n")
	h, err := hasher.Hash(token, "", tokenHashIters)
	if err != nil {
		return fmt.Errorf("hashing token: %w", err)
	}
	fmt.Println(h)
	return nil
}

func init() {
	tokenHashCmd.Flags().StringVar(
		&tokenMechanism, "mechanism", "scram-sha-256",
		"hashing mechanism (scram-sha-256 or scram-sha-1)",
	)
	tokenCmd.AddCommand(tokenHashCmd)
	rootCmd.AddCommand(tokenCmd)
}
