package main

import "auction-engine/cmd"

func main() {
	cmd.Execute()
}
