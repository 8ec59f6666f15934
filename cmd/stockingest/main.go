package main

import (
	"stock-ingest/internal/cli"
)

func main() {
	cli.Execute()
}
