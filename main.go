package main

import (
	"github.com/Roshick/go-autumn-assetlock/cmd"
)

func main() {
	cmd.Execute()
}
