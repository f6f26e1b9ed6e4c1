package main

import "github.com/0xPratikag/clinicctl/cmd"

func main() {
	cmd.Execute()
}
