package main

import "josephlewis.net/ash/cmd"

func main() {
	cmd.Execute()
}
