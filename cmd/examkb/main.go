package main

import "github.com/dgallion1/examkb/internal/cli"

func main() {
	cli.Execute()
}
