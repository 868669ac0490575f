package main

import "github.com/pcrawfurd/dIPFS/cmd"

func main() {
	cmd.Execute()
}
