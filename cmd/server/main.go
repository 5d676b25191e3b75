package main

import (
	"context"
	"log"
	"os"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/sealvault/internal/buildinfo"
	"github.com/dmitrijs2005/sealvault/internal/server"
	"github.com/dmitrijs2005/sealvault/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)
	defer memguard.Purge()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
