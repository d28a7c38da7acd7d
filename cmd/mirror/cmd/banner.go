package cmd

import (
	"fmt"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const banner = `
  __  __ _
 |  \/  (_)_ __ _ __ ___  _ __
 | |\/| | | '__| '__/ _ \| '__|
 | |  | | | |  | | | (_) | |
 |_|  |_|_|_|  |_|  \___/|_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Confidential Report Server - Version %s\x1b[0m\n\n", Version)
}
