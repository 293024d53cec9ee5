package main

import "github.com/keyquest/wa-gateway/cmd"

func main() {
	cmd.Execute()
}
