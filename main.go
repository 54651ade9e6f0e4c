package main

import "github.com/Tiliavir/rally-results/cmd"

func main() {
	cmd.Execute()
}
