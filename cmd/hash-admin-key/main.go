package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/gridstake/backend/internal/admin"
)

// Prints the bcrypt hash of an admin override key, for the
// ADMIN_KEY_HASH environment variable.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	key := os.Getenv("ADMIN_KEY")
	if len(os.Args) > 1 {
		key = os.Args[1]
	}
	if key == "" {
		log.Fatal("Usage: hash-admin-key <key> (or set ADMIN_KEY)")
	}

	hash, err := admin.HashOverrideKey(key)
	if err != nil {
		log.Fatalf("Failed to hash key: %v", err)
	}
	fmt.Println(hash)
}
