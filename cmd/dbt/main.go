// Package main is the entry point for dbt, the Dify console backup and usage tool.
// Without a subcommand it runs the Bubble Tea TUI; subcommands run headless.
package main

func main() {
	Execute()
}
