package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "document scanning tool",
	Example: `docscan serve
docscan scan -n <name> page1.jpg page2.jpg
docscan list
docscan search <query>
docscan get -d <doc-id>
docscan update -d <doc-id> -n <name> -t <tag>
docscan page move -d <doc-id> --from 3 --to 1
docscan export -d <doc-id> -f pdf -o ./out
docscan dispatch -d <doc-id> -f txt -w <url>
docscan delete -d <doc-id>`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(contextCommand)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.PersistentFlags().StringVar(&Server, "server", "", "server address (default from context)")

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
