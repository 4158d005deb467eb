package cmd

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var signatureCmd = &cobra.Command{
	Use:   "signature",
	Short: "signature library commands",
}

func init() {
	rootCmd.AddCommand(signatureCmd)
	signatureCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	signatureCmd.AddCommand(createSignatureCmd())
	signatureCmd.AddCommand(listSignaturesCmd())
	signatureCmd.AddCommand(defaultSignatureCmd())
	signatureCmd.AddCommand(deleteSignatureCmd())
}

func createSignatureCmd() *cobra.Command {
	var name string
	var makeDefault bool

	var required = []string{"name"}

	command := &cobra.Command{
		Use:     "create <image>",
		Short:   "add a signature image to the library",
		Example: "docscan signature create -n initials --default initials.png",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			sig, err := client.CreateSignature(cmd.Context(), name, args[0], makeDefault)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("signature created with id: %s", sig.ID)
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "name of the signature (required)")
	command.Flags().BoolVar(&makeDefault, "default", false, "make it the default signature")

	return command
}

func listSignaturesCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list signatures",
		Run: func(cmd *cobra.Command, args []string) {
			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			sigs, err := client.ListSignatures(cmd.Context())
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Default", "Created"})
			for _, sig := range sigs {
				table.Append([]string{sig.ID, sig.Name, strconv.FormatBool(sig.IsDefault), sig.CreatedAt.Format("2006-01-02 15:04")})
			}
			table.Render()
		},
	}

	return command
}

func defaultSignatureCmd() *cobra.Command {
	var sigID string

	var required = []string{"signature-id"}

	command := &cobra.Command{
		Use:   "default",
		Short: "make a signature the default",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			sig, err := client.SetDefaultSignature(cmd.Context(), sigID)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("default signature: %s (%s)", sig.Name, sig.ID)
		},
	}

	command.Flags().StringVarP(&sigID, "signature-id", "s", "", "signature id (required)")

	return command
}

func deleteSignatureCmd() *cobra.Command {
	var sigID string

	var required = []string{"signature-id"}

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a signature",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			if err := client.DeleteSignature(cmd.Context(), sigID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("signature deleted: %s", sigID)
		},
	}

	command.Flags().StringVarP(&sigID, "signature-id", "s", "", "signature id (required)")

	return command
}
