package main

import "github.com/mihaisavezi/mutual-dissent/cmd"

func main() {
	cmd.Execute()
}
