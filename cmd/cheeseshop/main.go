package main

import "cheeseshop/internal/cli"

func main() {
	cli.Execute()
}
