package main

import "iotsync/cmd/agent/cmd"

func main() {
	cmd.Execute()
}
