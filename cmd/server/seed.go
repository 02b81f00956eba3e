package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/threadchat/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate an empty database with demo users, topics and messages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(v.GetString(cfgKeyLogLevel))
		if err != nil {
			return err
		}

		st, err := store.Open(cmd.Context(), storeConfig(v), log)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		seeded, err := st.Seed(cmd.Context())
		if err != nil {
			return err
		}
		if seeded {
			fmt.Fprintln(cmd.OutOrStdout(), "Database seeded")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Database already has users; nothing to do")
		}
		return nil
	},
}
