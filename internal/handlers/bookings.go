package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/auth"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/booking"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/config"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/mailer"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/store"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/validation"
	"github.com/danielgtaylor/huma/v2"
)

type BookingHandler struct {
	svc         *booking.Service
	authHandler *auth.AuthHandler
	cfg         *config.Config
}

func NewBookingHandler(svc *booking.Service, authHandler *auth.AuthHandler, cfg *config.Config) *BookingHandler {
	return &BookingHandler{svc: svc, authHandler: authHandler, cfg: cfg}
}

// fail maps service errors onto HTTP errors. Unexpected errors are logged and
// only described to the client outside production.
func (h *BookingHandler) fail(op string, err error) error {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		details := make([]error, len(verrs))
		for i, fe := range verrs {
			details[i] = fe
		}
		return huma.Error400BadRequest("Validation failed", details...)
	case errors.Is(err, booking.ErrConflict):
		return huma.Error409Conflict("A booking for this email and package already exists")
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound("Booking not found")
	}

	log.Printf("%s failed: %v", op, err)
	if h.cfg.IsProduction() {
		return huma.Error500InternalServerError("Internal server error")
	}
	return huma.Error500InternalServerError("Internal server error", err)
}

type SubmitBookingRequest struct {
	Body struct {
		FullName        string `json:"fullName,omitempty" required:"false" doc:"Traveller's full name"`
		Email           string `json:"email,omitempty" required:"false"`
		Phone           string `json:"phone,omitempty" required:"false"`
		Age             *int   `json:"age,omitempty" required:"false"`
		Country         string `json:"country,omitempty" required:"false"`
		BookingType     string `json:"bookingType,omitempty" required:"false" doc:"individual or group"`
		NumberOfPeople  *int   `json:"numberOfPeople,omitempty" required:"false" doc:"Required for group bookings"`
		SelectedPackage string `json:"selectedPackage,omitempty" required:"false" doc:"Tour package name"`
	}
}

type SubmitBookingResponse struct {
	Body struct {
		Success   bool   `json:"success"`
		BookingID uint64 `json:"bookingId"`
		Message   string `json:"message"`
	}
}

func (h *BookingHandler) HandleSubmit(ctx context.Context, input *SubmitBookingRequest) (*SubmitBookingResponse, error) {
	b, err := h.svc.Submit(ctx, validation.Submission{
		FullName:        input.Body.FullName,
		Email:           input.Body.Email,
		Phone:           input.Body.Phone,
		Age:             input.Body.Age,
		Country:         input.Body.Country,
		BookingType:     input.Body.BookingType,
		NumberOfPeople:  input.Body.NumberOfPeople,
		SelectedPackage: input.Body.SelectedPackage,
	})
	if err != nil {
		return nil, h.fail("submit booking", err)
	}

	res := &SubmitBookingResponse{}
	res.Body.Success = true
	res.Body.BookingID = b.ID
	res.Body.Message = "Booking submitted successfully"
	return res, nil
}

type ListBookingsRequest struct {
	auth.AuthInput
	Page    int    `query:"page" default:"1"`
	Limit   int    `query:"limit" default:"10"`
	Search  string `query:"search" doc:"Substring of name, email or phone"`
	Status  string `query:"status" doc:"pending, confirmed or cancelled"`
	Package string `query:"package" doc:"Substring of the package name"`
}

type ListBookingsResponse struct {
	Body struct {
		Success    bool             `json:"success"`
		Bookings   []models.Booking `json:"bookings"`
		Total      int64            `json:"total"`
		Page       int              `json:"page"`
		Limit      int              `json:"limit"`
		TotalPages int              `json:"totalPages"`
	}
}

func (h *BookingHandler) HandleList(ctx context.Context, input *ListBookingsRequest) (*ListBookingsResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Authorization); err != nil {
		return nil, err
	}

	filter := store.Filter{Search: input.Search, Package: input.Package}
	if input.Status != "" {
		status, err := validation.Status(input.Status)
		if err != nil {
			return nil, h.fail("list bookings", err)
		}
		filter.Status = status
	}

	page, err := h.svc.List(ctx, filter, input.Page, input.Limit)
	if err != nil {
		return nil, h.fail("list bookings", err)
	}

	res := &ListBookingsResponse{}
	res.Body.Success = true
	res.Body.Bookings = page.Items
	res.Body.Total = page.Total
	res.Body.Page = page.Page
	res.Body.Limit = page.Limit
	res.Body.TotalPages = page.TotalPages
	return res, nil
}

type BookingIDRequest struct {
	auth.AuthInput
	ID uint64 `path:"id"`
}

type BookingResponse struct {
	Body struct {
		Success bool            `json:"success"`
		Booking *models.Booking `json:"booking"`
	}
}

func (h *BookingHandler) HandleGet(ctx context.Context, input *BookingIDRequest) (*BookingResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Authorization); err != nil {
		return nil, err
	}

	b, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, h.fail("get booking", err)
	}

	res := &BookingResponse{}
	res.Body.Success = true
	res.Body.Booking = b
	return res, nil
}

type UpdateBookingRequest struct {
	auth.AuthInput
	ID   uint64 `path:"id"`
	Body struct {
		Status string  `json:"status,omitempty" required:"false" doc:"pending, confirmed or cancelled"`
		Notes  *string `json:"notes,omitempty" required:"false" doc:"Omit to keep existing notes"`
	}
}

func (h *BookingHandler) HandleUpdate(ctx context.Context, input *UpdateBookingRequest) (*BookingResponse, error) {
	admin, err := h.authHandler.Authorize(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	b, err := h.svc.UpdateStatus(ctx, input.ID, input.Body.Status, input.Body.Notes)
	if err != nil {
		return nil, h.fail("update booking", err)
	}
	log.Printf("Booking %d set to %s by %s", b.ID, b.Status, admin.Username)

	res := &BookingResponse{}
	res.Body.Success = true
	res.Body.Booking = b
	return res, nil
}

type MessageResponse struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

func (h *BookingHandler) HandleDelete(ctx context.Context, input *BookingIDRequest) (*MessageResponse, error) {
	admin, err := h.authHandler.Authorize(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := h.svc.Delete(ctx, input.ID); err != nil {
		return nil, h.fail("delete booking", err)
	}
	log.Printf("Booking %d deleted by %s", input.ID, admin.Username)

	res := &MessageResponse{}
	res.Body.Success = true
	res.Body.Message = "Booking deleted successfully"
	return res, nil
}

type SendEmailRequest struct {
	auth.AuthInput
	ID   uint64 `path:"id"`
	Body struct {
		EmailType string `json:"emailType,omitempty" required:"false" doc:"booking-confirmation, payment-confirmation, status-update or admin-notification"`
	}
}

type SendEmailResponse struct {
	Body struct {
		Success   bool   `json:"success"`
		MessageID string `json:"messageId"`
	}
}

func (h *BookingHandler) HandleSendEmail(ctx context.Context, input *SendEmailRequest) (*SendEmailResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Authorization); err != nil {
		return nil, err
	}

	kind, ok := mailer.ParseKind(input.Body.EmailType)
	if !ok {
		return nil, huma.Error400BadRequest("Invalid email type", validation.FieldError{
			Field:   "emailType",
			Message: "Email type must be booking-confirmation, payment-confirmation, status-update or admin-notification",
			Code:    validation.CodeInvalid,
		})
	}

	result, err := h.svc.SendEmail(ctx, input.ID, kind)
	if err != nil {
		return nil, h.fail("send email", err)
	}
	if !result.Success {
		return nil, huma.Error500InternalServerError("Failed to send email", result.Err)
	}

	res := &SendEmailResponse{}
	res.Body.Success = true
	res.Body.MessageID = result.MessageID
	return res, nil
}

type StatsResponse struct {
	Body struct {
		Success bool         `json:"success"`
		Stats   *store.Stats `json:"stats"`
	}
}

func (h *BookingHandler) HandleStats(ctx context.Context, input *auth.AuthInput) (*StatsResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Authorization); err != nil {
		return nil, err
	}

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return nil, h.fail("booking stats", err)
	}

	res := &StatsResponse{}
	res.Body.Success = true
	res.Body.Stats = stats
	return res, nil
}

// spreadsheetSafe stops spreadsheet apps from evaluating free text as a formula.
func spreadsheetSafe(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

var exportHeader = []string{
	"ID", "Full Name", "Email", "Phone", "Age", "Country", "Booking Type",
	"Number Of People", "Selected Package", "Status", "Notes", "Created At", "Updated At",
}

// HandleExport streams every booking as a CSV attachment. It expects AdminMiddleware in front.
func (h *BookingHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.Export(r.Context())
	if err != nil {
		log.Printf("export bookings failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(&APIError{Message: "Failed to export bookings"})
		return
	}

	if admin, ok := auth.AdminFromContext(r.Context()); ok {
		log.Printf("Exporting %d bookings for %s", len(bookings), admin.Username)
	}

	filename := fmt.Sprintf("bookings-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	cw.Write(exportHeader)
	for _, b := range bookings {
		notes := ""
		if b.Notes != nil {
			notes = *b.Notes
		}
		cw.Write([]string{
			strconv.FormatUint(b.ID, 10),
			spreadsheetSafe(b.FullName),
			spreadsheetSafe(b.Email),
			b.Phone,
			strconv.Itoa(b.Age),
			spreadsheetSafe(b.Country),
			string(b.BookingType),
			strconv.Itoa(b.NumberOfPeople),
			spreadsheetSafe(b.SelectedPackage),
			string(b.Status),
			spreadsheetSafe(notes),
			b.CreatedAt.UTC().Format(time.RFC3339),
			b.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("write bookings csv: %v", err)
	}
}
