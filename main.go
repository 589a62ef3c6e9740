package main

import "loopcast/cmd"

func main() {
	cmd.Execute()
}
