package main

import (
	"github.com/leighmacdonald/rglstats/internal/cmd"
)

func main() {
	cmd.Execute()
}
