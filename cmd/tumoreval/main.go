package main

import "github.com/YuminosukeSato/tumoreval/cmd/tumoreval/cmd"

func main() {
	cmd.Execute()
}
