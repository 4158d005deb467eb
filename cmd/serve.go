package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/docscan/internal/app"
	"github.com/emrgen/docscan/internal/config"
	"github.com/emrgen/docscan/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd())
}

func serveCmd() *cobra.Command {
	var port string

	command := &cobra.Command{
		Use:   "serve",
		Short: "start the docscan server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			if port == "" {
				port = cfg.HTTP.Port
			}

			a, err := app.New(cfg)
			if err != nil {
				logrus.Fatalf("error building app: %v", err)
			}
			defer a.Close()

			if err := server.Start(port, app.NewServer(a), a.Tasks); err != nil {
				logrus.Errorf("error starting server: %v", err)
			}
		},
	}

	command.Flags().StringVarP(&port, "port", "p", "", "http port (default from config)")

	return command
}
