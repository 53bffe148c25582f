package main

import "github.com/OpenTraceLab/OpenTraceRSA/cmd/rsa/cmd"

func main() {
	cmd.Execute()
}
