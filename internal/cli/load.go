package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/OFFIS-RIT/nafstore/internal/storage"
	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"

	"github.com/spf13/cobra"
)

func newLoadCmd(e *env) *cobra.Command {
	var (
		sessionID   int
		docID       string
		layers      []string
		granularity string
		part        int
		output      string
		s3Key       string
	)

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load a document record",
		Long: `Load reads the requested layers of a document and prints the document
record as JSON. Prerequisite layers are loaded as well.

Example:
  nafctl load --session 1 --doc doc-a
  nafctl load --session 1 --doc doc-a --layers entities,deps
  nafctl load --session 1 --doc doc-a --layers raw
  nafctl load --session 1 --doc doc-a --granularity S --part 3
  nafctl load --session 1 --doc doc-a --s3-key exports/doc-a.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := layer.All()
			if len(layers) > 0 {
				s, err := layer.ParseSet(layers)
				if err != nil {
					return err
				}
				set = s
			}
			gran, err := layer.ParseGranularity(granularity)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, be, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer be.Close()

			doc, err := a.LoadDocument(ctx, sessionID, docID, set, gran, part)
			if err != nil {
				return err
			}
			rec, err := codec.FlattenDocument(doc)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}

			if s3Key != "" {
				bucket, err := storage.NewBucket(ctx, e.cfg.S3)
				if err != nil {
					return err
				}
				if err := bucket.PutFile(ctx, s3Key, data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to s3://%s/%s\n", bucket.Name(), s3Key)
				return nil
			}
			if output != "" {
				return os.WriteFile(output, append(data, '\n'), 0o644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	flags := loadCmd.Flags()
	flags.IntVar(&sessionID, "session", 0, "session id")
	flags.StringVar(&docID, "doc", "", "document id")
	flags.StringSliceVar(&layers, "layers", nil, "layers to load (default: all)")
	flags.StringVar(&granularity, "granularity", "D", "D (document), P (paragraph) or S (sentence)")
	flags.IntVar(&part, "part", 0, "paragraph or sentence number for P and S")
	flags.StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	flags.StringVar(&s3Key, "s3-key", "", "upload to the configured bucket under this key")
	_ = loadCmd.MarkFlagRequired("doc")

	names := []string{layer.AllName, layer.RawName}
	for _, k := range layer.Order() {
		names = append(names, k.Name())
	}
	flags.Lookup("layers").Usage += " [" + strings.Join(names, ", ") + "]"
	return loadCmd
}
