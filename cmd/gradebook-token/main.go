// Command gradebook-token issues a bearer token for the gradebook API using the configured JWT secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/service"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/config"
)

func main() {
	id := flag.String("id", "", "user id recorded as the token subject")
	name := flag.String("name", "", "display name stored in grade history")
	role := flag.String("role", string(models.RoleTeacher), "TEACHER, ADMIN or SUPERADMIN")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: expiry})
	actor := models.Actor{ID: *id, Name: *name, Role: models.UserRole(strings.ToUpper(*role))}
	token, expiresAt, err := tokens.Issue(actor, *email)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
