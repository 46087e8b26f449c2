package main

import (
	"github.com/joho/godotenv"

	"medrag/internal/commands"
)

func main() {
	_ = godotenv.Load()
	commands.Execute()
}
