package main

import "github.com/oshokin/latmon/cmd/alarm-handler/cmd"

func main() {
	cmd.Execute()
}
