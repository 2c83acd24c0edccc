// Package google keeps the app's blobs in a Google Sheet: column A holds the
// key and column B the JSON value. Values longer than one cell continue on
// rows keyed "key#1", "key#2" and so on.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"haushalt/internal/kv"
)

// MaxCellLength is the Sheets limit on characters in a single cell.
const MaxCellLength = 50000

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ kv.Store = (*Store)(nil)

// NewFromEnv creates a store using environment variables and a service account.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Haushalt")
func NewFromEnv(ctx context.Context) (*Store, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheet == "" {
		sheet = "Haushalt"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return "", false, kv.Wrap(kv.OpGet, key, err)
	}
	v, ok := assemble(rows, key)
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	rows, err := s.readRows(ctx)
	if err != nil {
		return kv.Wrap(kv.OpSet, key, err)
	}
	return kv.Wrap(kv.OpSet, key, s.apply(ctx, planWrite(rows, key, value)))
}

// Remove clears every row of the key. The empty rows stay in place.
func (s *Store) Remove(ctx context.Context, key string) error {
	rows, err := s.readRows(ctx)
	if err != nil {
		return kv.Wrap(kv.OpRemove, key, err)
	}
	return kv.Wrap(kv.OpRemove, key, s.apply(ctx, writePlan{clears: partRows(rows, key, 0)}))
}

type rowWrite struct {
	row    int
	values []any
}

// writePlan lists the sheet changes for one Set or Remove. Row numbers are 1-based.
type writePlan struct {
	updates []rowWrite
	appends [][]any
	clears  []int
}

// planWrite overwrites the key's existing part rows, appends the missing
// ones and clears parts left over from a longer previous value.
func planWrite(rows [][]any, key, value string) writePlan {
	var p writePlan
	parts := splitValue(value, MaxCellLength)
	for i, part := range parts {
		row := []any{partKey(key, i), part}
		if n := findRow(rows, partKey(key, i)); n > 0 {
			p.updates = append(p.updates, rowWrite{row: n, values: row})
		} else {
			p.appends = append(p.appends, row)
		}
	}
	p.clears = partRows(rows, key, len(parts))
	return p
}

func (s *Store) apply(ctx context.Context, p writePlan) error {
	if len(p.updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
		for _, u := range p.updates {
			req.Data = append(req.Data, &gsheet.ValueRange{
				Range:  s.rowRange(u.row),
				Values: [][]any{u.values},
			})
		}
		if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return err
		}
	}
	if len(p.appends) > 0 {
		rng := fmt.Sprintf("%s!A:B", s.sheet)
		_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: p.appends}).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return err
		}
	}
	if len(p.clears) > 0 {
		req := &gsheet.BatchClearValuesRequest{}
		for _, n := range p.clears {
			req.Ranges = append(req.Ranges, s.rowRange(n))
		}
		if _, err := s.svc.Spreadsheets.Values.BatchClear(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:B%d", s.sheet, n, n)
}

// partKey names the row holding part i of key. Part 0 is the key itself.
func partKey(key string, i int) string {
	if i == 0 {
		return key
	}
	return key + "#" + strconv.Itoa(i)
}

// partRows returns the rows of key's parts from index from onwards, stopping
// at the first missing part.
func partRows(rows [][]any, key string, from int) []int {
	var out []int
	for i := from; ; i++ {
		n := findRow(rows, partKey(key, i))
		if n == 0 {
			return out
		}
		out = append(out, n)
	}
}

// assemble joins the parts of key in order.
func assemble(rows [][]any, key string) (string, bool) {
	found := partRows(rows, key, 0)
	if len(found) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, n := range found {
		b.WriteString(cellValue(rows[n-1]))
	}
	return b.String(), true
}

// splitValue cuts v into pieces of at most limit bytes without splitting a
// rune. An empty value is a single empty piece.
func splitValue(v string, limit int) []string {
	if len(v) <= limit {
		return []string{v}
	}
	var parts []string
	for len(v) > limit {
		end := limit
		for end > 0 && !utf8.RuneStart(v[end]) {
			end--
		}
		parts = append(parts, v[:end])
		v = v[end:]
	}
	if v != "" {
		parts = append(parts, v)
	}
	return parts
}

func (s *Store) readRows(ctx context.Context) ([][]any, error) {
	if s.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:B", s.sheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// findRow returns the 1-based sheet row holding key, or 0.
func findRow(rows [][]any, key string) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == key {
			return i + 1
		}
	}
	return 0
}

func cellValue(row []any) string {
	if len(row) < 2 || row[1] == nil {
		return ""
	}
	return fmt.Sprint(row[1])
}
