package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"macro-meal-planner/internal/importer"
)

var sheetOpts struct {
	spreadsheetID   string
	dishRange       string
	ingredientRange string
}

var importSheetCmd = &cobra.Command{
	Use:   "import-sheet",
	Short: "Replace the catalog with the contents of a Google spreadsheet",
	Long: `Reads a dishes range and an ingredients range from a spreadsheet with the
service account in GOOGLE_CREDENTIALS_PATH, validates them and replaces the
stored catalog. A JSON snapshot of the imported catalog is written as well.`,
	RunE: runImportSheet,
}

var importHTMLCmd = &cobra.Command{
	Use:     "import-html <file-or-url>",
	Short:   "Replace the catalog with the first two tables of an HTML page",
	Args:    cobra.ExactArgs(1),
	Example: "  macro-meal-planner import-html https://example.com/catalog.html",
	RunE:    runImportHTML,
}

func init() {
	f := importSheetCmd.Flags()
	f.StringVar(&sheetOpts.spreadsheetID, "spreadsheet", "", "spreadsheet ID")
	f.StringVar(&sheetOpts.dishRange, "dishes-range", "", "A1 range of the dish table (default dishes!A:H)")
	f.StringVar(&sheetOpts.ingredientRange, "ingredients-range", "", "A1 range of the ingredient table (default ingredients!A:B)")
	_ = importSheetCmd.MarkFlagRequired("spreadsheet")

	rootCmd.AddCommand(importSheetCmd, importHTMLCmd)
}

func runImportSheet(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireGoogleCredentials(); err != nil {
		return err
	}
	creds, err := importer.ReadCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		return err
	}

	src, err := importer.NewSheetsSource(cmd.Context(), importer.SheetsConfig{
		CredentialsJSON: creds,
		SpreadsheetID:   sheetOpts.spreadsheetID,
		DishRange:       sheetOpts.dishRange,
		IngredientRange: sheetOpts.ingredientRange,
	})
	if err != nil {
		return err
	}
	return runImport(cmd, src)
}

func runImportHTML(cmd *cobra.Command, args []string) error {
	return runImport(cmd, &importer.HTMLSource{Location: args[0]})
}

func runImport(cmd *cobra.Command, src importer.Source) error {
	cmd.Printf("Importing catalog from %s...\n", src.Name())

	res, err := application.Importer().Run(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d dishes (%d eligible) and %d ingredient links.\n", res.Dishes, res.Eligible, res.Ingredients)
	if res.SnapshotPath != "" {
		cmd.Printf("Snapshot written to %s\n", res.SnapshotPath)
	}
	return nil
}
