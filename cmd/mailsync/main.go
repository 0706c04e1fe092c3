package main

import "github.com/driftlock/mailsync/internal/cli"

func main() {
	cli.Execute()
}
