package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/treefix50/reelrange/internal/server"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the media store once, update the catalog and print the videos found",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openMediaStore(cfg)
		if err != nil {
			return err
		}
		catalog, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		if catalog != nil {
			defer catalog.Close()
		}

		lib, err := server.NewLibrary(store, server.NewContentTypes(cfg.DefaultContentType, cfg.ContentTypes), catalogStore(catalog))
		if err != nil {
			return err
		}
		if _, err := lib.Scan(cmd.Context()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, v := range lib.All() {
			fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", v.ID, v.Size, v.ContentType, v.Filename)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
