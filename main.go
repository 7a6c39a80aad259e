package main

import "github.com/jhorman9/elevideo/cmd"

func main() {
	cmd.Execute()
}
