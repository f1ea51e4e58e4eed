package store

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Column order of the bookings sheet. Row 1 holds these headers.
var sheetHeader = []interface{}{
	"ID", "Full Name", "Email", "Phone", "Age", "Country", "Booking Type",
	"Number Of People", "Selected Package", "Status", "Notes", "Created At", "Updated At",
}

const sheetLastColumn = "M"

// SheetRows is the slice of the Sheets values API the store needs. Row numbers are 1-based.
type SheetRows interface {
	ReadAll(ctx context.Context) ([][]interface{}, error)
	AppendRow(ctx context.Context, row []interface{}) error
	UpdateRow(ctx context.Context, rowNumber int, row []interface{}) error
	DeleteRow(ctx context.Context, rowNumber int) error
}

type sheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	sheetID       int64
}

// NewSheetsClient authenticates with a service-account key file.
func NewSheetsClient(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, sheetID int64) (SheetRows, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &sheetsClient{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, sheetID: sheetID}, nil
}

func (c *sheetsClient) rowRange(rowNumber int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, rowNumber, sheetLastColumn, rowNumber)
}

func (c *sheetsClient) ReadAll(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetName+"!A:"+sheetLastColumn).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *sheetsClient) AppendRow(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:"+sheetLastColumn, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (c *sheetsClient) UpdateRow(ctx context.Context, rowNumber int, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(rowNumber), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *sheetsClient) DeleteRow(ctx context.Context, rowNumber int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    c.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNumber - 1),
					EndIndex:   int64(rowNumber),
				},
			},
		}},
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return err
}

// SheetsStore keeps bookings as rows of a spreadsheet. Every operation scans
// the whole sheet; writes are serialized within the process.
type SheetsStore struct {
	rows SheetRows
	now  func() time.Time
	mu   sync.Mutex
}

func NewSheetsStore(rows SheetRows) *SheetsStore {
	return &SheetsStore{rows: rows, now: time.Now}
}

func (s *SheetsStore) WithClock(now func() time.Time) *SheetsStore {
	s.now = now
	return s
}

type sheetRecord struct {
	rowNumber int
	booking   models.Booking
}

// newSheetID composes the creation time in milliseconds with three random digits.
func newSheetID(t time.Time) uint64 {
	return uint64(t.UnixMilli())*1000 + uint64(rand.Intn(1000))
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func parseRow(row []interface{}) (models.Booking, error) {
	id, err := strconv.ParseUint(cell(row, 0), 10, 64)
	if err != nil {
		return models.Booking{}, fmt.Errorf("invalid id %q", cell(row, 0))
	}
	age, _ := strconv.Atoi(cell(row, 4))
	people, _ := strconv.Atoi(cell(row, 7))
	created, _ := time.Parse(time.RFC3339Nano, cell(row, 11))
	updated, _ := time.Parse(time.RFC3339Nano, cell(row, 12))

	b := models.Booking{
		ID:              id,
		FullName:        cell(row, 1),
		Email:           cell(row, 2),
		Phone:           cell(row, 3),
		Age:             age,
		Country:         cell(row, 5),
		BookingType:     models.BookingType(cell(row, 6)),
		NumberOfPeople:  people,
		SelectedPackage: cell(row, 8),
		Status:          models.BookingStatus(cell(row, 9)),
		CreatedAt:       created,
		UpdatedAt:       updated,
	}
	if b.Status == "" {
		b.Status = models.StatusPending
	}
	if notes := cell(row, 10); notes != "" {
		b.Notes = &notes
	}
	return b, nil
}

func formatRow(b models.Booking) []interface{} {
	notes := ""
	if b.Notes != nil {
		notes = *b.Notes
	}
	return []interface{}{
		strconv.FormatUint(b.ID, 10),
		b.FullName,
		b.Email,
		b.Phone,
		strconv.Itoa(b.Age),
		b.Country,
		string(b.BookingType),
		strconv.Itoa(b.NumberOfPeople),
		b.SelectedPackage,
		string(b.Status),
		notes,
		b.CreatedAt.UTC().Format(time.RFC3339Nano),
		b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// load returns every parseable booking row. Unparseable rows are skipped.
func (s *SheetsStore) load(ctx context.Context) ([]sheetRecord, bool, error) {
	values, err := s.rows.ReadAll(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read bookings sheet: %w", err)
	}
	if len(values) == 0 {
		return nil, false, nil
	}

	records := make([]sheetRecord, 0, len(values)-1)
	for i, row := range values[1:] {
		b, err := parseRow(row)
		if err != nil {
			continue
		}
		records = append(records, sheetRecord{rowNumber: i + 2, booking: b})
	}
	return records, true, nil
}

func duplicateIn(records []sheetRecord, email, pkg string) *models.Booking {
	email, pkg = strings.TrimSpace(email), strings.TrimSpace(pkg)
	for _, r := range records {
		b := r.booking
		if b.Status != models.StatusCancelled &&
			strings.EqualFold(b.Email, email) &&
			strings.EqualFold(b.SelectedPackage, pkg) {
			return &b
		}
	}
	return nil
}

func (s *SheetsStore) FindDuplicate(ctx context.Context, email, pkg string) (*models.Booking, error) {
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return duplicateIn(records, email, pkg), nil
}

func (s *SheetsStore) Insert(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, hasHeader, err := s.load(ctx)
	if err != nil {
		return err
	}
	if duplicateIn(records, b.Email, b.SelectedPackage) != nil {
		return ErrDuplicate
	}
	if !hasHeader {
		if err := s.rows.AppendRow(ctx, sheetHeader); err != nil {
			return fmt.Errorf("write sheet header: %w", err)
		}
	}

	ts := s.now().UTC()
	b.ID = newSheetID(ts)
	b.CreatedAt = ts
	b.UpdatedAt = ts
	if b.Status == "" {
		b.Status = models.StatusPending
	}
	if err := s.rows.AppendRow(ctx, formatRow(*b)); err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	return nil
}

func (s *SheetsStore) find(ctx context.Context, id uint64) (*sheetRecord, error) {
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].booking.ID == id {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *SheetsStore) Get(ctx context.Context, id uint64) (*models.Booking, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec.booking, nil
}

func matches(b models.Booking, f Filter) bool {
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if !strings.Contains(strings.ToLower(b.FullName), search) &&
			!strings.Contains(strings.ToLower(b.Email), search) &&
			!strings.Contains(strings.ToLower(b.Phone), search) {
			return false
		}
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if pkg := strings.ToLower(strings.TrimSpace(f.Package)); pkg != "" {
		if !strings.Contains(strings.ToLower(b.SelectedPackage), pkg) {
			return false
		}
	}
	return true
}

func newestFirst(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}

func (s *SheetsStore) List(ctx context.Context, f Filter, page, limit int) (*Page, error) {
	page, limit = Normalize(page, limit)
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var matched []models.Booking
	for _, r := range records {
		if matches(r.booking, f) {
			matched = append(matched, r.booking)
		}
	}
	newestFirst(matched)

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return newPage(matched[start:end], total, page, limit), nil
}

func (s *SheetsStore) All(ctx context.Context) ([]models.Booking, error) {
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	bookings := make([]models.Booking, len(records))
	for i, r := range records {
		bookings[i] = r.booking
	}
	newestFirst(bookings)
	return bookings, nil
}

func (s *SheetsStore) UpdateStatus(ctx context.Context, id uint64, status models.BookingStatus, notes *string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	b := rec.booking
	b.Status = status
	if notes != nil {
		b.Notes = nil
		if n := *notes; n != "" {
			b.Notes = &n
		}
	}
	b.UpdatedAt = s.now().UTC()

	if err := s.rows.UpdateRow(ctx, rec.rowNumber, formatRow(b)); err != nil {
		return nil, fmt.Errorf("update booking row: %w", err)
	}
	return &b, nil
}

func (s *SheetsStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.rows.DeleteRow(ctx, rec.rowNumber); err != nil {
		return fmt.Errorf("delete booking row: %w", err)
	}
	return nil
}

func (s *SheetsStore) Stats(ctx context.Context) (*Stats, error) {
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	current := s.now().UTC()
	dayStart, weekStart := periodStarts(current)

	stats := &Stats{
		ByStatus:  map[string]int64{string(models.StatusPending): 0, string(models.StatusConfirmed): 0, string(models.StatusCancelled): 0},
		Generated: current,
	}
	for _, r := range records {
		stats.Total++
		stats.ByStatus[string(r.booking.Status)]++
		if !r.booking.CreatedAt.Before(dayStart) {
			stats.Today++
		}
		if !r.booking.CreatedAt.Before(weekStart) {
			stats.ThisWeek++
		}
	}
	return stats, nil
}

func (s *SheetsStore) Close() error {
	return nil
}
