package main

import "snowdash/cmd"

func main() {
	cmd.Execute()
}
