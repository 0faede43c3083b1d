package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/retouch/internal/archive"
	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect SQLite result archives",
}

var archiveLsCmd = &cobra.Command{
	Use:   "ls <archive.db>",
	Short: "List archived results",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveLs,
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <archive.db> <name>",
	Short: "Extract one archived result as PNG",
	Args:  cobra.ExactArgs(2),
	RunE:  runArchiveGet,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveLsCmd, archiveGetCmd)

	archiveGetCmd.Flags().StringP("output", "o", "", "Output PNG (default: <name>.png)")
}

func runArchiveLs(cmd *cobra.Command, args []string) error {
	r, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	infos, err := r.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s), %d results\n", meta.Name, meta.Description, len(infos))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tPASSES\tSEED\tKEY\tSTORED\tCREATED")
	for _, info := range infos {
		seed := "-"
		if info.Seed != nil {
			seed = fmt.Sprint(*info.Seed)
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%s\t%s\t%s\t%s\n",
			info.Name, info.Width, info.Height, info.Passes, seed, info.Key,
			humanize.Bytes(uint64(info.Size)), info.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func runArchiveGet(cmd *cobra.Command, args []string) error {
	r, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	entry, err := r.Get(args[1])
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = entry.Name + ".png"
	}
	if output == "-" {
		_, err := os.Stdout.Write(entry.PNG)
		return err
	}
	if err := codec.WriteFile(output, entry.PNG); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", output, humanize.Bytes(uint64(len(entry.PNG))))
	return nil
}
