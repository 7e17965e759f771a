// Command userapi serves create, read, update and delete of users over HTTP.
package main

import (
	"log"

	"github.com/patric-chuzhbe/userapi/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		application.Close()
		log.Fatalf("application stopped with error: %v", err)
	}
}
