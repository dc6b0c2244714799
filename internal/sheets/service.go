package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"splitter/internal/logger"
	"splitter/pkg/models"
)

// SavedAtLayout formats the "Saved at" column.
const SavedAtLayout = "2006-01-02 15:04:05"

// JournalHeaders is the header row of the journal worksheet.
var JournalHeaders = []string{
	"Saved at", "Table",
	models.HeaderDate, models.HeaderBillNumber, models.HeaderID, models.HeaderVendor,
	models.HeaderConcept, models.HeaderCC, models.HeaderGLAccount,
	models.HeaderSubtotal, models.HeaderIVARate, models.HeaderIVA, models.HeaderTotal,
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Journal mirrors saved ledger lines into a Google Sheets worksheet.
type Journal struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewJournal connects to the spreadsheet at sheetURL with service account
// credentials from GOOGLE_APPLICATION_CREDENTIALS (a file) or
// GOOGLE_CREDENTIALS (inline JSON).
func NewJournal(ctx context.Context, sheetURL string) (*Journal, error) {
	const op = "NewJournal"

	log := logger.WithComponent("sheets-journal")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	creds, err := readCredentials()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Journal{
		sheetsService: svc,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

func readCredentials() ([]byte, error) {
	if file := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); file != "" {
		creds, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return creds, nil
	}
	if inline := os.Getenv("GOOGLE_CREDENTIALS"); inline != "" {
		return []byte(inline), nil
	}
	return nil, fmt.Errorf("neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set")
}

func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL %q", url)
	}
	return matches[1], nil
}

// AppendLines appends one journal row per line to worksheet, creating the
// worksheet with a bold header row when it is missing.
func (j *Journal) AppendLines(ctx context.Context, worksheet string, lines []models.LineItem, savedAt time.Time) error {
	const op = "AppendLines"

	if len(lines) == 0 {
		return nil
	}

	if err := j.ensureSheetWithHeaders(ctx, worksheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	values := make([][]interface{}, 0, len(lines))
	for _, line := range lines {
		values = append(values, lineToValues(line, savedAt))
	}

	_, err := j.sheetsService.Spreadsheets.Values.Append(
		j.spreadsheetID,
		worksheet+"!"+journalColumns(),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append rows: %w", op, err)
	}

	j.log.Info().
		Str("worksheet", worksheet).
		Int("rows", len(values)).
		Msg("Journal updated")
	return nil
}

// journalColumns is the A1 column span of the journal, e.g. "A:M".
func journalColumns() string {
	return "A:" + columnLetter(len(JournalHeaders))
}

func columnLetter(n int) string {
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('A' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}

// lineToValues renders a line in JournalHeaders order. Amounts go out as
// fixed two-decimal text so the sheet does not reformat them.
func lineToValues(line models.LineItem, savedAt time.Time) []interface{} {
	row := []interface{}{savedAt.Format(SavedAtLayout), line.Table}
	for _, header := range JournalHeaders[2:] {
		v, _ := line.Get(header)
		row = append(row, journalValue(header, v))
	}
	return row
}

func journalValue(header string, v any) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format("2006-01-02")
	case decimal.Decimal:
		if header == models.HeaderIVARate {
			return val.StringFixed(4)
		}
		return val.StringFixed(2)
	default:
		return val
	}
}

func (j *Journal) ensureSheetWithHeaders(ctx context.Context, worksheet string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := j.sheetsService.Spreadsheets.Get(j.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	sheetID, exists := int64(0), false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == worksheet {
			sheetID, exists = sheet.Properties.SheetId, true
			break
		}
	}

	if !exists {
		j.log.Info().Str("worksheet", worksheet).Msg("Creating journal worksheet")
		resp, err := j.sheetsService.Spreadsheets.BatchUpdate(j.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: worksheet}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create worksheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	last := columnLetter(len(JournalHeaders))
	headerRange := fmt.Sprintf("%s!A1:%s1", worksheet, last)
	resp, err := j.sheetsService.Spreadsheets.Values.Get(j.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]interface{}, len(JournalHeaders))
	for i, h := range JournalHeaders {
		header[i] = h
	}
	_, err = j.sheetsService.Spreadsheets.Values.Update(
		j.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{header}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := j.formatHeaders(ctx, sheetID); err != nil {
		j.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

func (j *Journal) formatHeaders(ctx context.Context, sheetID int64) error {
	width := int64(len(JournalHeaders))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   width,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   width,
				},
			},
		},
	}

	_, err := j.sheetsService.Spreadsheets.BatchUpdate(j.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("formatHeaders: %w", err)
	}
	return nil
}
