package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emrgen/docscan"
)

const (
	configFileName = "docscan"
	configDir      = "./.tmp"
	defaultServer  = "localhost:4020"
)

// Server overrides the server address of the saved context.
var Server string

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

type Context struct {
	Server string `json:"server" mapstructure:"server"`
}

// saves the context info to the config file in ./.tmp
func setContextCommand() *cobra.Command {
	var server string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if server == "" {
				color.Red(`missing: --server`)
				return
			}

			if err := writeContext(Context{Server: server}); err != nil {
				fmt.Println("error writing config file: ", err)
			} else {
				fmt.Println("context saved")
			}
		},
	}

	command.Flags().StringVarP(&server, "server", "s", "", "server address, a port, host:port or url")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			printField("Server", serverAddress())
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			if err := writeContext(Context{}); err != nil {
				fmt.Println("error writing config file: ", err)
				return
			}
			fmt.Println("context reset")
		},
	}

	return command
}

func contextViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.AddConfigPath(configDir)
	v.SetConfigType("yml")
	return v
}

func writeContext(context Context) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	v := contextViper()
	v.Set("context", context)

	return v.WriteConfigAs(filepath.Join(configDir, configFileName+".yml"))
}

func readContext() Context {
	var ctx Context

	v := contextViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Println("error reading config file: ", err)
		}
		return ctx
	}

	if err := v.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}

	return ctx
}

// serverAddress resolves --server, then the saved context, then the default.
func serverAddress() string {
	if Server != "" {
		return Server
	}
	if ctx := readContext(); ctx.Server != "" {
		return ctx.Server
	}
	return defaultServer
}

func newClient() (docscan.Client, bool) {
	client, err := docscan.NewClient(serverAddress())
	if err != nil {
		logrus.Error(err)
		return nil, false
	}
	return client, true
}
