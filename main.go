package main

import "github.com/execution-handler/build-tools/cmd"

func main() {
	cmd.Execute()
}
