package main

import "github.com/lescriminels/guild/cmd"

func main() {
	cmd.Execute()
}
