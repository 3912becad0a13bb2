// Package main is the entry point for the loadable CLI.
package main

import "github.com/basecamp/loadable/internal/cli"

func main() {
	cli.Execute()
}
