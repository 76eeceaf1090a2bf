package main

import (
	"os"

	"ggufplan/internal/planctl"
)

func main() {
	os.Exit(planctl.Main(os.Args[1:]))
}
