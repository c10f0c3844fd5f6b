package main

import (
	"github.com/huolto/huolto/cmd/huolto/commands"
)

func main() {
	commands.Execute()
}
