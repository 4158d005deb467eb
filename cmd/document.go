package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/docscan"
	v1 "github.com/emrgen/docscan/apis/v1"
)

func init() {
	rootCmd.AddCommand(scanDocCmd())
	rootCmd.AddCommand(addPagesCmd())
	rootCmd.AddCommand(getDocCmd())
	rootCmd.AddCommand(listDocCmd())
	rootCmd.AddCommand(searchDocCmd())
	rootCmd.AddCommand(updateDocCmd())
	rootCmd.AddCommand(deleteDocCmd())

	rootCmd.AddCommand(pageCmd)
	pageCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	pageCmd.AddCommand(movePageCmd())
	pageCmd.AddCommand(setPageTextCmd())
	pageCmd.AddCommand(deletePageCmd())

	rootCmd.AddCommand(exportDocCmd())
	rootCmd.AddCommand(dispatchDocCmd())
}

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "page commands",
}

func scanDocCmd() *cobra.Command {
	var name string

	command := &cobra.Command{
		Use:     "scan <image>...",
		Short:   "scan images into a new document",
		Long:    `correct, enhance and recognize every image and store them as the pages of one document, in order`,
		Example: "docscan scan -n <name> page1.jpg page2.jpg",
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			res, err := client.ScanDocument(cmd.Context(), name, args...)
			if err != nil {
				logrus.Error(err)
				return
			}

			printOutcome(res.Outcome)
			if res.Skipped > 0 {
				color.Yellow("skipped: %d pages", res.Skipped)
			}
			if res.Document != nil {
				logrus.Infof("document created with id: %s", res.Document.ID)
				printDocument(res.Document)
			}
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "name of the document")

	return command
}

func addPagesCmd() *cobra.Command {
	var docID string

	var required = []string{"doc-id"}

	command := &cobra.Command{
		Use:     "add-pages <image>...",
		Short:   "scan images and append them to a document",
		Example: "docscan add-pages -d <doc-id> page3.jpg",
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			res, err := client.AddPages(cmd.Context(), docID, args...)
			if err != nil {
				logrus.Error(err)
				return
			}

			printOutcome(res.Outcome)
			if res.Document != nil {
				printDocument(res.Document)
			}
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")

	return command
}

func getDocCmd() *cobra.Command {
	var docID string
	var text bool

	var required = []string{"doc-id"}

	command := &cobra.Command{
		Use:     "get",
		Short:   "get a document",
		Example: "docscan get -d <doc-id> --text",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			doc, err := client.GetDocument(cmd.Context(), docID)
			if err != nil {
				logrus.Error(err)
				return
			}

			printDocument(doc)

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Page", "ID", "Text"})
			for _, page := range doc.Pages {
				table.Append([]string{strconv.Itoa(page.PageNumber), page.ID, excerpt(page.OcrText, 60)})
			}
			table.Render()

			if text {
				printField("Text", doc.FullText)
			}
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().BoolVarP(&text, "text", "x", false, "print the full recognized text")

	return command
}

func listDocCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list documents, most recently updated first",
		Run: func(cmd *cobra.Command, args []string) {
			listDocuments(cmd, "")
		},
	}

	return command
}

func searchDocCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "search <query>",
		Short:   "search documents by name, text and tags",
		Example: `docscan search "electricity bill"`,
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			listDocuments(cmd, args[0])
		},
	}

	return command
}

func listDocuments(cmd *cobra.Command, query string) {
	client, ok := newClient()
	if !ok {
		return
	}
	defer client.Close()

	docs, err := client.ListDocuments(cmd.Context(), query)
	if err != nil {
		logrus.Error(err)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Pages", "Updated"})
	for _, doc := range docs {
		table.Append([]string{doc.ID, doc.Name, strconv.Itoa(doc.PageCount), doc.UpdatedAt.Format("2006-01-02 15:04")})
	}
	table.Render()
}

func updateDocCmd() *cobra.Command {
	var docID string
	var name string
	var tag string

	var required = []string{"doc-id"}

	command := &cobra.Command{
		Use:     "update",
		Short:   "rename or tag a document",
		Example: "docscan update -d <doc-id> -n <name> -t <tag>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			req := v1.UpdateDocumentRequest{}
			if cmd.Flag("name").Changed {
				req.Name = &name
			}
			if cmd.Flag("tag").Changed {
				req.Tag = &tag
			}
			if req.Name == nil && req.Tag == nil {
				color.Red("missing: --name or --tag")
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			doc, err := client.UpdateDocument(cmd.Context(), docID, req)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("document updated: %s", doc.ID)
			printDocument(doc)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&name, "name", "n", "", "new name of the document")
	command.Flags().StringVarP(&tag, "tag", "t", "", "tag to add to the document")
	command.Flags().SortFlags = false

	return command
}

func deleteDocCmd() *cobra.Command {
	var docID string

	var required = []string{"doc-id"}

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a document with its pages",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			if err := client.DeleteDocument(cmd.Context(), docID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("document deleted: %s", docID)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")

	return command
}

func movePageCmd() *cobra.Command {
	var docID string
	var from int
	var to int

	var required = []string{"doc-id", "from", "to"}

	command := &cobra.Command{
		Use:     "move",
		Short:   "move a page to another position",
		Example: "docscan page move -d <doc-id> --from 3 --to 1",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			doc, err := client.UpdatePage(cmd.Context(), docID, from, v1.UpdatePageRequest{MoveTo: &to})
			if err != nil {
				logrus.Error(err)
				return
			}

			printDocument(doc)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().IntVarP(&from, "from", "f", 0, "current page number (required)")
	command.Flags().IntVarP(&to, "to", "t", 0, "new page number (required)")
	command.Flags().SortFlags = false

	return command
}

func setPageTextCmd() *cobra.Command {
	var docID string
	var number int
	var text string

	var required = []string{"doc-id", "page", "text"}

	command := &cobra.Command{
		Use:     "set-text",
		Short:   "replace the recognized text of a page",
		Example: `docscan page set-text -d <doc-id> -p 2 -c "corrected text"`,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			doc, err := client.UpdatePage(cmd.Context(), docID, number, v1.UpdatePageRequest{Text: &text})
			if err != nil {
				logrus.Error(err)
				return
			}

			printDocument(doc)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().IntVarP(&number, "page", "p", 0, "page number (required)")
	command.Flags().StringVarP(&text, "text", "c", "", "page text (required)")
	command.Flags().SortFlags = false

	return command
}

func deletePageCmd() *cobra.Command {
	var docID string
	var number int

	var required = []string{"doc-id", "page"}

	command := &cobra.Command{
		Use:     "delete",
		Short:   "delete a page; the following pages move up",
		Example: "docscan page delete -d <doc-id> -p 2",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			doc, err := client.DeletePage(cmd.Context(), docID, number)
			if err != nil {
				logrus.Error(err)
				return
			}

			printDocument(doc)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().IntVarP(&number, "page", "p", 0, "page number (required)")
	command.Flags().SortFlags = false

	return command
}

// exportFlags are shared by export and dispatch.
type exportFlags struct {
	format      string
	baseName    string
	includeText bool
	quality     int
	page        int
}

func (f *exportFlags) bind(command *cobra.Command) {
	command.Flags().StringVarP(&f.format, "format", "f", "", "pdf, jpeg, txt or xlsx (required)")
	command.Flags().StringVarP(&f.baseName, "base-name", "b", "", "file name of the artifact, without extension")
	command.Flags().BoolVar(&f.includeText, "include-text", false, "print the recognized text below each page (pdf)")
	command.Flags().IntVarP(&f.quality, "quality", "q", -1, "jpeg quality 0-100")
	command.Flags().IntVarP(&f.page, "page", "p", 0, "page holding the table (xlsx)")
}

func (f *exportFlags) request() v1.ExportRequest {
	req := v1.ExportRequest{
		Format:         f.format,
		BaseName:       f.baseName,
		IncludeOCRText: f.includeText,
		PageNumber:     f.page,
	}
	if f.quality >= 0 {
		req.Quality = &f.quality
	}
	return req
}

func exportDocCmd() *cobra.Command {
	var docID string
	var out string
	var flags exportFlags

	var required = []string{"doc-id", "format"}

	command := &cobra.Command{
		Use:     "export",
		Short:   "export a document",
		Example: "docscan export -d <doc-id> -f pdf --include-text -o ./out",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			res, err := client.ExportDocument(cmd.Context(), docID, flags.request())
			if err != nil {
				logrus.Error(err)
				return
			}

			printOutcome(res.Outcome)
			if out == "" {
				for _, artifact := range res.Artifacts {
					printField("Artifact", artifact)
				}
				return
			}

			if err := os.MkdirAll(out, 0755); err != nil {
				logrus.Error(err)
				return
			}
			for _, artifact := range res.Artifacts {
				path := filepath.Join(out, artifact)
				if err := download(cmd, client, docID, artifact, path); err != nil {
					logrus.Error(err)
					continue
				}
				printField("Saved", path)
			}
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	flags.bind(command)
	command.Flags().StringVarP(&out, "out", "o", "", "download the artifacts into this directory")
	command.Flags().SortFlags = false

	return command
}

func download(cmd *cobra.Command, client docscan.Client, docID, artifact, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := client.DownloadArtifact(cmd.Context(), docID, artifact, file); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func dispatchDocCmd() *cobra.Command {
	var docID string
	var webhooks []string
	var event string
	var uploads []string
	var shares []string
	var flags exportFlags

	var required = []string{"doc-id", "format"}

	command := &cobra.Command{
		Use:     "dispatch",
		Short:   "export a document and send it to webhooks and share targets",
		Example: "docscan dispatch -d <doc-id> -f pdf -w https://hooks.example/scan --upload folder --share queue",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			var targets []v1.Target
			for _, url := range webhooks {
				targets = append(targets, v1.Target{Type: "webhook", URL: url, Event: event})
			}
			for _, via := range uploads {
				targets = append(targets, v1.Target{Type: "cloud_upload", Via: via})
			}
			for _, via := range shares {
				targets = append(targets, v1.Target{Type: "share", Via: via})
			}
			if len(targets) == 0 {
				color.Red("missing: --webhook, --upload or --share")
				return
			}

			client, ok := newClient()
			if !ok {
				return
			}
			defer client.Close()

			res, err := client.DispatchDocument(cmd.Context(), docID, v1.DispatchRequest{
				Export:  flags.request(),
				Targets: targets,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			printField("Export", res.Export.Status)
			printOutcome(res.Dispatch)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	flags.bind(command)
	command.Flags().StringSliceVarP(&webhooks, "webhook", "w", nil, "webhook url")
	command.Flags().StringVarP(&event, "event", "e", "", "webhook event name")
	command.Flags().StringSliceVar(&uploads, "upload", nil, "cloud upload target: folder or queue")
	command.Flags().StringSliceVar(&shares, "share", nil, "share target: folder or queue")
	command.Flags().SortFlags = false

	return command
}

func printDocument(doc *v1.Document) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Pages", "Created", "Updated"})
	table.Append([]string{
		doc.ID,
		doc.Name,
		strconv.Itoa(doc.PageCount),
		doc.CreatedAt.Format("2006-01-02 15:04"),
		doc.UpdatedAt.Format("2006-01-02 15:04"),
	})
	table.Render()
}

func printOutcome(outcome v1.Outcome) {
	switch outcome.Status {
	case "succeeded":
		color.Green("%s: %d/%d", outcome.Status, outcome.Succeeded, outcome.Total)
	case "partial":
		color.Yellow("%s: %d/%d", outcome.Status, outcome.Succeeded, outcome.Total)
	default:
		color.Red("%s: %d/%d", outcome.Status, outcome.Succeeded, outcome.Total)
	}
	for _, msg := range outcome.Errors {
		color.Red("  %s", msg)
	}
}

func printField(label, value string) {
	color.Set(color.FgCyan)
	fmt.Print(label)
	color.Unset()
	fmt.Printf(": %s\n", value)
}

func excerpt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// checkMissingFlags checks if the required flags are set and returns ok if they are set
func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")

		_ = cmd.Usage()

		return true
	}

	return false
}
