package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the collections and indexes of the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, be, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer be.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Store ready (%s)\n", be.Name)
			return nil
		},
	}
}

func newRemoveCmd(e *env) *cobra.Command {
	var (
		sessionID int
		docID     string
	)
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove every record of a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, be, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer be.Close()

			err = be.Locker.WithScope(ctx, sessionID, docID, func(ctx context.Context) error {
				return a.RemoveDocument(ctx, sessionID, docID)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session=%d doc=%q\n", sessionID, docID)
			return nil
		},
	}
	removeCmd.Flags().IntVar(&sessionID, "session", 0, "session id")
	removeCmd.Flags().StringVar(&docID, "doc", "", "document id")
	_ = removeCmd.MarkFlagRequired("doc")
	return removeCmd
}

func newDropCmd(e *env) *cobra.Command {
	var yes bool
	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every collection of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("drop deletes all stored documents, confirm with --yes")
			}
			ctx := cmd.Context()
			a, be, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer be.Close()

			if err := a.Drop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Store dropped")
			return nil
		},
	}
	dropCmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return dropCmd
}
