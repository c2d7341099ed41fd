package main

import "github.com/studyhall/shell/cmd/server/cmd"

func main() {
	cmd.Execute()
}
