package importer

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ValuesGetter reads a range of cell values from a spreadsheet.
type ValuesGetter interface {
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
}

// SheetsSource reads the dish and ingredient tables from a Google spreadsheet.
type SheetsSource struct {
	values          ValuesGetter
	spreadsheetID   string
	dishRange       string
	ingredientRange string
}

// SheetsConfig configures a SheetsSource.
type SheetsConfig struct {
	CredentialsJSON []byte
	SpreadsheetID   string
	DishRange       string
	IngredientRange string
}

type sheetsValues struct {
	service *sheets.Service
}

func (v *sheetsValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := v.service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// NewSheetsSource creates a SheetsSource backed by the Sheets API.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig) (*SheetsSource, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(cfg.CredentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewSheetsSourceWithValues(&sheetsValues{service: service}, cfg), nil
}

// NewSheetsSourceWithValues creates a SheetsSource over any ValuesGetter.
func NewSheetsSourceWithValues(values ValuesGetter, cfg SheetsConfig) *SheetsSource {
	dishRange := cfg.DishRange
	if dishRange == "" {
		dishRange = "dishes!A:H"
	}
	ingredientRange := cfg.IngredientRange
	if ingredientRange == "" {
		ingredientRange = "ingredients!A:B"
	}
	return &SheetsSource{
		values:          values,
		spreadsheetID:   cfg.SpreadsheetID,
		dishRange:       dishRange,
		ingredientRange: ingredientRange,
	}
}

// ReadCredentials loads a service account key file.
func ReadCredentials(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read google credentials: %w", err)
	}
	return data, nil
}

func (s *SheetsSource) Name() string {
	return "sheet:" + s.spreadsheetID
}

// Fetch reads both ranges and parses them.
func (s *SheetsSource) Fetch(ctx context.Context) (*Tables, error) {
	dishValues, err := s.values.Get(ctx, s.spreadsheetID, s.dishRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet range %s: %w", s.dishRange, err)
	}
	if len(dishValues) == 0 {
		return nil, fmt.Errorf("no data found in spreadsheet range %s", s.dishRange)
	}

	ingredientValues, err := s.values.Get(ctx, s.spreadsheetID, s.ingredientRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet range %s: %w", s.ingredientRange, err)
	}

	return ParseTables(toStrings(dishValues), toStrings(ingredientValues))
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = fmt.Sprintf("%v", v)
		}
	}
	return rows
}
