package main

import "github.com/pfrederiksen/ssa-datasets/internal/cli"

func main() {
	cli.Execute()
}
