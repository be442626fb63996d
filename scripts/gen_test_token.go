package main

import (
	"fmt"
	"log"
	"os"

	"codeberg.org/melodygen/server/internal/auth"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// generates a JWT for local API testing:
//
//	go run scripts/gen_test_token.go [user-id] [email]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET not set")
	}

	userID := uuid.NewString()
	email := "test@melodygen.dev"

	if len(os.Args) > 1 {
		userID = os.Args[1]
	}

	if len(os.Args) > 2 {
		email = os.Args[2]
	}

	token, err := auth.GenerateJWT(userID, email, false)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("user_id: %s\n", userID)
	fmt.Printf("email:   %s\n", email)
	fmt.Printf("\nAuthorization: Bearer %s\n", token)
}
