package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dalemusser/sorpasso/app"
	"github.com/dalemusser/sorpasso/internal/gateway"
	"github.com/spf13/pflag"

	// Italian timestamps in notification emails need Europe/Rome even on
	// images without a zoneinfo database.
	_ "time/tzdata"
)

func main() {
	err := app.Run(context.Background(), gateway.Hooks(os.Args[1:]))
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}
