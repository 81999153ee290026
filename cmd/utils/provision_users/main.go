package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"example.com/keycloak-provisioner/internal/keycloak"
	"example.com/keycloak-provisioner/internal/provisioner"
)

func usage() {
	fmt.Println(`Usage: provision_users <project_name> "<comma-separated full names>" [email_domain]`)
	fmt.Println(`Example: provision_users my-project "John Doe, Jane Smith, Bob Johnson"`)
	fmt.Println(`Example: provision_users my-project "John Doe, Jane Smith" @company.com`)
}

func main() {
	// load local .env for convenience
	_ = godotenv.Load()

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	projectName := os.Args[1]
	names := provisioner.SplitNames(os.Args[2])
	if len(names) == 0 {
		log.Fatal("user list is empty")
	}

	cfg := provisioner.ConfigFromEnv()
	// positional domain argument beats EMAIL_DOMAIN from the environment
	if len(os.Args) > 3 {
		cfg.EmailDomain = provisioner.NormalizeDomain(os.Args[3])
	}

	client, err := keycloak.NewClientFromEnv()
	if err != nil {
		log.Fatalf("keycloak client: %v", err)
	}

	log.Printf("project %q, %d users, email domain %s", projectName, len(names), cfg.EmailDomain)

	report, err := provisioner.NewRunner(client, cfg).Run(context.Background(), projectName, names)
	if err != nil {
		log.Fatalf("batch aborted: %v", err)
	}
	log.Printf("report: %s", report.Summary())
}
