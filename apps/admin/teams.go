package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/myhockeyrecruiting/mhr/core/lookup"
)

var errNoRows = errors.New("no rows to import")

func (cli *commandLine) importTeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "importteams <file.csv>",
		Short: "Import league,level,team rows into the lookups",
		Long: "Import league,level,team rows into the lookups.\n" +
			"A first row reading league,level,team is skipped. Existing values are left untouched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening teams file")
			}
			defer f.Close()
			return cli.importTeams(cmd.Context(), f)
		},
	}
}

func (cli *commandLine) importTeams(ctx context.Context, r io.Reader) error {
	rows, err := readHierarchy(r)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errNoRows
	}
	res := cli.lookupSvc.BulkCreateHierarchy(ctx, rows)
	cli.printf("%d rows: %d values created, %d skipped", res.Total, res.Created, res.Skipped)
	for _, e := range res.Errors {
		cli.printf("  %s", e)
	}
	return nil
}

func readHierarchy(r io.Reader) ([]lookup.HierarchyRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}

	rows := make([]lookup.HierarchyRow, 0, len(records))
	for i, rec := range records {
		for len(rec) < 3 {
			rec = append(rec, "")
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "league") {
			continue
		}
		rows = append(rows, lookup.HierarchyRow{League: rec[0], Level: rec[1], Team: rec[2]})
	}
	return rows, nil
}
