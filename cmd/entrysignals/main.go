package main

import "entry-signals/internal/cli"

func main() {
	cli.Execute()
}
