package main

import "github.com/aouyang1/go-forecast-eval/cmd/evaluate/cmd"

func main() {
	cmd.Execute()
}
