package main

import "github.com/quicksandd/mirror/cmd/mirror/cmd"

func main() {
	cmd.Execute()
}
