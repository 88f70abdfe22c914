package main

import (
	"context"
	"log"

	"github.com/Kurubik/snake/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
