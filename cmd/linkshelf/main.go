// Package main provides the linkshelf CLI.
package main

import (
	// Embed the tz database so Asia/Shanghai resolves on minimal images.
	_ "time/tzdata"

	"github.com/mesh-intelligence/linkshelf/internal/cli"
)

func main() {
	cli.Execute()
}
