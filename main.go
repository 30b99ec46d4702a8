package main

import "github.com/kamusis/mbed-cli/cmd"

func main() {
	cmd.Execute()
}
