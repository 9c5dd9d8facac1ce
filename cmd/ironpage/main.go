package main

import "github.com/jmcleod/ironpage/cmd/ironpage/cmd"

func main() {
	cmd.Execute()
}
