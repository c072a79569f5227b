package main

import "edgetrace/cmd"

func main() {
	cmd.Execute()
}
