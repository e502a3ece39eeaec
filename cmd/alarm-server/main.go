package main

import "github.com/oshokin/latmon/cmd/alarm-server/cmd"

func main() {
	cmd.Execute()
}
