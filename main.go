package main

import "github.com/comandaqr/ticket-gateway/cmd"

func main() {
	cmd.Execute()
}
