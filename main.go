package main

import "github.com/khanhnv2901/phishscope/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
