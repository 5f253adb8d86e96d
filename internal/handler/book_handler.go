package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/metrics"
	"github.com/prn-tf/lendery/internal/service"
)

// returnDateLayout is the wire format for loan due dates (DD-MM-YYYY).
const returnDateLayout = "02-01-2006"

// BookHandler serves the /book_api endpoints.
type BookHandler struct {
	books  *service.BookService
	logger zerolog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(books *service.BookService, logger zerolog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger.With().Str("handler", "book").Logger(),
	}
}

// Routes mounts the book endpoints on a chi router.
func (h *BookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/fetch_books", h.FetchBooks)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/add_new_book", h.AddNewBook)
		r.Patch("/activity/{bookID}", h.ToggleActivity)
		r.Patch("/reserve_book/{bookID}", h.ReserveBook)
		r.Patch("/cancel_reservation/{bookID}", h.CancelReservation)
		r.Patch("/receive_book/{bookID}", h.ReceiveBook)
		r.Patch("/return_book/{bookID}", h.ReturnBook)
		r.Delete("/remove_book/{bookID}", h.RemoveBook)
	})

	return r
}

// bookResponse is the wire representation of a book.
type bookResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Img         string `json:"img"`
	Reserved    bool   `json:"reserved"`
	LentOut     bool   `json:"lentOut"`
	IsActive    bool   `json:"isActive"`
	OwnerID     int64  `json:"ownerId"`
	LenderID    *int64 `json:"lenderId"`
	ReturnDate  string `json:"returnDate,omitempty"`
	Overdue     bool   `json:"overdue,omitempty"`
}

func newBookResponse(b *domain.Book, now time.Time) bookResponse {
	resp := bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Img:         b.ImageURL,
		Reserved:    b.Reserved,
		LentOut:     b.LentOut,
		IsActive:    b.Active,
		OwnerID:     b.OwnerID,
		LenderID:    b.LenderID,
	}
	if b.ReturnDate != nil {
		resp.ReturnDate = b.ReturnDate.Format(returnDateLayout)
		resp.Overdue = b.IsOverdue(now)
	}
	return resp
}

// FetchBooks returns all books.
func (h *BookHandler) FetchBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	resp := make([]bookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, newBookResponse(b, now))
	}

	writeJSON(w, http.StatusOK, resp)
}

type addBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

// AddNewBook lists a new book owned by the caller.
func (h *BookHandler) AddNewBook(w http.ResponseWriter, r *http.Request) {
	callerID, _ := userIDFrom(r.Context())

	var req addBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.books.Add(r.Context(), service.AddBookInput{
		OwnerID:     callerID,
		Title:       req.Title,
		Author:      req.Author,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.BookListed()

	writeJSON(w, http.StatusCreated, newBookResponse(out.Book, time.Now().UTC()))
}

type activityRequest struct {
	Active bool `json:"active"`
}

// ToggleActivity changes whether the caller's book is offered.
func (h *BookHandler) ToggleActivity(w http.ResponseWriter, r *http.Request) {
	callerID, bookID, ok := h.callerAndBook(w, r)
	if !ok {
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.books.SetActive(r.Context(), callerID, bookID, req.Active); err != nil {
		// Activity of a lent-out book belongs to the running loan, not
		// the owner: refused as unauthorized rather than as a bad state.
		if errors.Is(err, service.ErrAlreadyLentOut) {
			writeMessage(w, http.StatusUnauthorized, "cannot change activity while the book is lent out")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "activity updated")
}

// reserveResponse confirms a reservation.
type reserveResponse struct {
	ID       int64 `json:"id"`
	LenderID int64 `json:"lenderId"`
}

// ReserveBook places a reservation on a book for the caller.
func (h *BookHandler) ReserveBook(w http.ResponseWriter, r *http.Request) {
	callerID, bookID, ok := h.callerAndBook(w, r)
	if !ok {
		return
	}

	if err := h.books.Reserve(r.Context(), callerID, bookID); err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.LendingTransition("reserve")

	writeJSON(w, http.StatusOK, reserveResponse{ID: bookID, LenderID: callerID})
}

// CancelReservation withdraws a reservation before hand-over.
func (h *BookHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	callerID, bookID, ok := h.callerAndBook(w, r)
	if !ok {
		return
	}

	if err := h.books.CancelReservation(r.Context(), callerID, bookID); err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.LendingTransition("cancel")

	writeMessage(w, http.StatusOK, "reservation cancelled")
}

// receiveResponse reports the due date of the new loan.
type receiveResponse struct {
	ReturnDate string `json:"returnDate"`
}

// ReceiveBook confirms the physical hand-over of a reserved book.
func (h *BookHandler) ReceiveBook(w http.ResponseWriter, r *http.Request) {
	callerID, bookID, ok := h.callerAndBook(w, r)
	if !ok {
		return
	}

	out, err := h.books.Receive(r.Context(), callerID, bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.LendingTransition("receive")

	writeJSON(w, http.StatusOK, receiveResponse{
		ReturnDate: out.ReturnDate.Format(returnDateLayout),
	})
}

// ReturnBook closes a loan and makes the book available again.
func (h *BookHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	callerID, bookID, ok := h.callerAndBook(w, r)
	if !ok {
		return
	}

	if err := h.books.Return(r.Context(), callerID, bookID); err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.LendingTransition("return")

	writeMessage(w, http.StatusOK, "book returned")
}

// RemoveBook deletes one of the caller's book listings.
func (h *BookHandler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	callerID, bookID, ok := h.callerAndBook(w, r)
	if !ok {
		return
	}

	if err := h.books.Remove(r.Context(), callerID, bookID); err != nil {
		writeServiceError(w, err)
		return
	}

	metrics.LendingTransition("remove")

	writeMessage(w, http.StatusOK, "book removed")
}

// callerAndBook extracts the authenticated caller and the bookID URL
// parameter, writing the error response itself when the ID is invalid.
func (h *BookHandler) callerAndBook(w http.ResponseWriter, r *http.Request) (callerID, bookID int64, ok bool) {
	callerID, _ = userIDFrom(r.Context())

	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid book ID")
		return 0, 0, false
	}

	return callerID, bookID, true
}
