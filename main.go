package main

import "ukenergy/energyflow/cmd"

func main() {
	cmd.Execute()
}
