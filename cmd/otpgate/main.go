package main

import (
	"log"

	"github.com/tech-arch1tect/otpgate"
	"github.com/tech-arch1tect/otpgate/config"
)

func main() {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := otpgate.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	app.Run()
}
