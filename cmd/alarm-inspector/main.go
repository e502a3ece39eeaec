package main

import "github.com/oshokin/latmon/cmd/alarm-inspector/cmd"

func main() {
	cmd.Execute()
}
