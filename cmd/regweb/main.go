// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package main is the main entry point of the data products registry.
package main

import (
	"github.com/dataproducts/registry/cmd/regweb/command"
)

func main() {
	command.Execute()
}
