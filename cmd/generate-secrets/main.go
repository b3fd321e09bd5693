package main

import (
	"fmt"
	"log"

	"github.com/staynest/rental-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for StayNest")
	fmt.Println("===========================================")
	fmt.Println()

	secrets, err := utils.GenerateSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secrets.JWTAccess)
	fmt.Printf("PAYMENT_WEBHOOK_SECRET=%s\n", secrets.WebhookSigner)
	fmt.Println()
	fmt.Println("The webhook secret must match the one configured at the payment provider.")
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
