package main

import "github.com/fachebot/counsel-assist/cmd"

func main() {
	cmd.Execute()
}
