package main

import "graphdrop/cmd"

func main() {
	cmd.Execute()
}
