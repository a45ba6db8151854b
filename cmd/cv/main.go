package main

import (
	"log"

	"curationvault/cmd/cv/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatal(err)
	}
}
