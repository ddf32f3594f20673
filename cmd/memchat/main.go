package main

import (
	"os"

	"github.com/aiox-platform/memchat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
