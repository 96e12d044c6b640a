// Command createsuperuser bootstraps an administrator account.
package main

import (
	"context"
	"flag"
	"log"

	"commentbox/internal/config"
	"commentbox/internal/db"
	"commentbox/internal/services"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	email := flag.String("email", "", "email of the new superuser")
	password := flag.String("password", "", "password of the new superuser")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	conf := config.MustLoad(*configPath)
	conn := db.Init(conf.Database)

	u, err := services.NewAccountService(conn, conf.Widget).CreateSuperuser(context.Background(), *email, *password)
	if err != nil {
		log.Fatalf("Failed to create superuser: %v", err)
	}
	log.Printf("Superuser %s created with id %d", u.Email, u.ID)
}
