package main

import "github.com/chenyk320/menu/cmd/menuctl/commands"

func main() {
	commands.Execute()
}
