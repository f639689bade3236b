package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombor/expense-tracker/internal/parsing"
	"github.com/zombor/expense-tracker/internal/scanning"
)

const (
	// phone photos are large; 50MB leaves room for HEIC and PDF scans
	maxUploadSize = int64(50 << 20)
	maxTextSize   = int64(1 << 20)
	maxJSONSize   = int64(1 << 20)
)

// scanResponse is a Draft plus the expense form pre-filled from it
type scanResponse struct {
	*Draft
	Input ExpenseInput `json:"input"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, scanning.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "Reading the receipt took too long. Please try again.")
	case errors.Is(err, scanning.ErrSuperseded):
		writeError(w, http.StatusConflict, "A newer scan of this receipt replaced this one.")
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONSize)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// detectContentType prefers the part header and falls back to the extension
func detectContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScanReceipt stores an uploaded receipt and returns the parsed draft.
// The optional "capture" field identifies retakes of the same receipt.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	draft, err := s.service.ScanReceipt(r.Context(), r.FormValue("capture"), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		writeServiceError(w, err, "Receipt not found")
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{Draft: draft, Input: s.service.NewInputFromDraft(draft)})
}

// handleParseText parses a plain text receipt body
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Receipt text is too large")
		return
	}
	writeJSON(w, http.StatusOK, s.service.ParseText(string(body)))
}

// filterFromQuery reads category, from and to (YYYY-MM-DD)
func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{Category: q.Get("category")}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		d, err := time.ParseInLocation(parsing.DateLayout, v, time.Local)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", p.name, v)
		}
		*p.dst = d
	}
	return filter, nil
}

// handleListExpenses returns expenses, newest first
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.service.ListExpenses(filter)
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var input ExpenseInput
	if !decodeJSON(w, r, &input) {
		return
	}

	expense, err := s.service.CreateExpense(input)
	if err != nil {
		writeServiceError(w, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var input ExpenseInput
	if !decodeJSON(w, r, &input) {
		return
	}

	expense, err := s.service.UpdateExpense(r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, err, "Expense not found")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		writeServiceError(w, err, "Expense not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetReceiptFile returns the receipt image of an expense
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.CategoryTotals()
	if err != nil {
		slog.Error("Error totalling expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleExportExpenses downloads the filtered expenses as a workbook
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.ExportXLSX(filter)
	if err != nil {
		slog.Error("Error exporting expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	name := fmt.Sprintf("expenses-%s.xlsx", s.service.timeSource.Now().Format(parsing.DateLayout))
	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Write(data)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.ListCategories()
	if err != nil {
		slog.Error("Error listing categories", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input Category
	if !decodeJSON(w, r, &input) {
		return
	}

	category, err := s.service.CreateCategory(input)
	if err != nil {
		writeServiceError(w, err, "Category not found")
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCategory(r.PathValue("name")); err != nil {
		writeServiceError(w, err, "Category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
