// Command wbsim runs a Wishbone memory-slave emulation against a bus master.
package main

import "github.com/sarchlab/wbsim/cmd/wbsim/cmd"

func main() {
	cmd.Execute()
}
