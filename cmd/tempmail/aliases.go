package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dimuthnilanjana/email-alias-generator/alias"
)

func newAliasesCmd(streams Streams) *cobra.Command {
	var (
		out   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "aliases ADDRESS",
		Short: "Generate aliases of an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, err := alias.Generate(args[0], alias.WithLimit(limit))
			if err != nil {
				return err
			}

			if out == "" {
				if err := alias.Write(streams.Out, aliases); err != nil {
					return err
				}
				_, err := fmt.Fprintln(streams.Out)
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := alias.Write(f, aliases); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(streams.Err, "Generated %d aliases into %s\n", len(aliases), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write aliases to a file (e.g. "+alias.Filename+")")
	cmd.Flags().IntVar(&limit, "limit", alias.DefaultLimit, "maximum number of aliases, 0 for all")
	return cmd
}
