package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/naf"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newStoreCmd(e *env) *cobra.Command {
	var (
		sessionID  int
		docID      string
		paragraph  int
		sentence   int
		bySentence bool
		parallel   int
	)

	storeCmd := &cobra.Command{
		Use:   "store <file>...",
		Short: "Store document records from JSON files",
		Long: `Store reads one JSON document record per file and writes its layers.

The document id defaults to the file name without extension. Files are
stored in parallel; writes of the same document are serialized.

Example:
  nafctl store --session 1 doc-a.json doc-b.json
  nafctl store --session 1 --by-sentence corpus/*.json
  nafctl store --session 1 --doc intro --paragraph 2 part.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if docID != "" && len(args) > 1 {
				return errors.New("--doc needs exactly one file")
			}
			if sentence >= 0 && paragraph < 0 {
				return errors.New("--sentence needs --paragraph")
			}
			if bySentence && paragraph >= 0 {
				return errors.New("--by-sentence cannot be combined with --paragraph")
			}
			part := layer.WholeDocument
			if paragraph >= 0 {
				part = layer.ParagraphPart(paragraph)
				if sentence >= 0 {
					part = layer.SentencePart(paragraph, sentence)
				}
			}

			ctx := cmd.Context()
			a, be, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer be.Close()

			var stored atomic.Int64
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for _, file := range args {
				id := docID
				if id == "" {
					id = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
				}
				g.Go(func() error {
					doc, err := readDocument(file)
					if err != nil {
						return err
					}
					err = be.Locker.WithScope(gctx, sessionID, id, func(ctx context.Context) error {
						if bySentence {
							return a.StoreDocumentBySentence(ctx, sessionID, id, doc)
						}
						return a.StoreDocument(ctx, sessionID, id, doc, part)
					})
					if err != nil {
						return fmt.Errorf("%s: %w", file, err)
					}
					stored.Add(1)
					logger.Info("[CLI] Stored document", "file", file, "session", sessionID, "doc", id)
					return nil
				})
			}
			err = g.Wait()
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d of %d documents\n", stored.Load(), len(args))
			return err
		},
	}

	flags := storeCmd.Flags()
	flags.IntVar(&sessionID, "session", 0, "session id")
	flags.StringVar(&docID, "doc", "", "document id (default: file name)")
	flags.IntVar(&paragraph, "paragraph", -1, "store at paragraph scope")
	flags.IntVar(&sentence, "sentence", -1, "store at sentence scope, needs --paragraph")
	flags.BoolVar(&bySentence, "by-sentence", false, "split the document into sentence records")
	flags.IntVar(&parallel, "parallel", runtime.NumCPU(), "number of files stored concurrently")
	return storeCmd
}

func readDocument(file string) (*naf.Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	rec := new(codec.DocumentRecord)
	if err := codec.Decode(data, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	doc, err := codec.HydrateDocument(rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return doc, nil
}
