// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the hextract CLI.
package main

import (
	"hextract/cli/cmd"
)

func main() {
	cmd.Execute()
}
