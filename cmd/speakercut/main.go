package main

import "github.com/forPelevin/speakercut/internal/cli"

func main() {
	cli.Main()
}
