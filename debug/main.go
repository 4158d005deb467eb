package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/docscan/internal/app"
	"github.com/emrgen/docscan/internal/config"
	"github.com/emrgen/docscan/internal/server"
)

func main() {
	cfg := config.LoadConfig()

	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = cfg.HTTP.Port
	}

	a, err := app.New(cfg)
	if err != nil {
		logrus.Fatalf("error building app: %v", err)
	}
	defer a.Close()

	if err := server.Start(httpPort, app.NewServer(a), a.Tasks); err != nil {
		logrus.Errorf("error starting server: %v", err)
	}
}
