package main

import (
	"os"

	"github.com/basalt-io/basalt-go/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
