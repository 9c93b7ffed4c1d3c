package main

import (
	"log"

	"github.com/thiagokokada/gitview-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("gitview: %v", err)
	}
}
