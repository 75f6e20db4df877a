package main

import "snassist-backend/cmd/snassist-cli/cmd"

func main() {
	cmd.Execute()
}
