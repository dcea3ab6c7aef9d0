package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/joeblew999/plat-aoi/internal/aoi"
	"github.com/joeblew999/plat-aoi/internal/server"
)

// aoiCommand groups offline operations on the stored AOIs.
func aoiCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "aoi",
		Short: "Inspect stored areas of interest",
	}

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored AOIs",
		Run: withStore(func(cmd *cobra.Command, args []string, store *aoi.Store) error {
			return listAOIs(cmd.OutOrStdout(), store)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a stored AOI",
		Args:  cobra.ExactArgs(1),
		Run: withStore(func(cmd *cobra.Command, args []string, store *aoi.Store) error {
			if _, ok := store.Get(args[0]); !ok {
				return fmt.Errorf("no AOI with id %s", args[0])
			}
			store.Remove(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write all AOIs as a GeoJSON FeatureCollection to stdout",
		Run: withStore(func(cmd *cobra.Command, args []string, store *aoi.Store) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(aoi.FeatureCollection(store.List()))
		}),
	})

	return root
}

// withStore opens the configured backend, runs fn and closes it again.
func withStore(fn func(cmd *cobra.Command, args []string, store *aoi.Store) error) func(*cobra.Command, []string) {
	return humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
		kv, closeKV, err := server.OpenKV(opts.Store, opts.DataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeKV()

		if err := fn(cmd, args, aoi.NewStore(kv)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			closeKV()
			os.Exit(1)
		}
	})
}

func listAOIs(w io.Writer, store *aoi.Store) error {
	list := store.List()
	if len(list) == 0 {
		fmt.Fprintln(w, "No AOIs stored.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.CreatedAt)
	}
	return tw.Flush()
}
