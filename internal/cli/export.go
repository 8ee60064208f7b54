package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cheeseshop/internal/adapters/catalog"
)

func exportCmd(flags *globalFlags) *cobra.Command {
	var (
		formats     []string
		requestedBy string
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Render the catalog into the blob store and print artifact keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := catalog.ExportInput{RequestedBy: requestedBy}
			for _, raw := range formats {
				f, err := catalog.ParseExportFormat(raw)
				if err != nil {
					return err
				}
				input.Formats = append(input.Formats, f)
			}

			rt, err := setup(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			worker := catalog.NewWorker(rt.service, rt.blobs, rt.log)
			record, err := worker.Run(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("export %s: %w", record.ID, err)
			}
			out := cmd.OutOrStdout()
			for _, a := range record.Artifacts {
				fmt.Fprintf(out, "%s\t%s\t%d bytes\n", a.Format, a.Key, a.SizeBytes)
			}
			return nil
		},
	}

	c.Flags().StringSliceVar(&formats, "format", nil, "export format: json or csv (repeatable, default both)")
	c.Flags().StringVar(&requestedBy, "requested-by", "cli", "recorded as the export requester")
	return c
}
