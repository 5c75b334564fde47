// This program performs proof of work tasks from the command line.
package main

import (
	"github.com/ardanlabs/miner/app/tooling/powctl/cmd"
)

func main() {
	cmd.Execute()
}
