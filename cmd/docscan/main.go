package main

import "github.com/emrgen/docscan/cmd"

func main() {
	cmd.Execute()
}
