package main

import "github.com/estincelle/chip-tool-go/cmd"

func main() {
	cmd.Execute()
}
