package main

import "github.com/alechenninger/trustreg/internal/cli"

func main() {
	cli.Execute()
}
