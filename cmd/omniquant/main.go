package main

import "github.com/Devadharshan16/OmniQuant/internal/cli"

func main() {
	cli.Execute()
}
