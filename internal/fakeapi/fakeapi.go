// Package fakeapi is an in-memory stand-in for the remote bookstore API used
// by package tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type account struct {
	user     models.User
	password string
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	books      []models.Book
	categories []models.Category
	reviews    []models.Review
	orders     map[string][]models.Order
	accounts   map[string]*account
	tokens     map[string]string
	calls      map[string]int
	failures   map[string]int
	lastBody   map[string]json.RawMessage
	seq        int
}

// New starts a server seeded with a small catalog and one account
// ("reader" / "Secret123").
func New() *Server {
	s := &Server{
		orders:   map[string][]models.Order{},
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		calls:    map[string]int{},
		failures: map[string]int{},
		lastBody: map[string]json.RawMessage{},
		seq:      100,
	}
	s.seed()

	mux := http.NewServeMux()
	s.route(mux, "GET /books", s.listBooks)
	s.route(mux, "GET /books/search", s.searchBooks)
	s.route(mux, "GET /books/category/{id}", s.booksByCategory)
	s.route(mux, "GET /books/{id}", s.getBook)
	s.route(mux, "GET /categories", s.listCategories)
	s.route(mux, "GET /reviews/book/{id}", s.reviewsForBook)
	s.route(mux, "GET /reviews/user/current", s.authed(s.myReviews))
	s.route(mux, "POST /reviews", s.authed(s.createReview))
	s.route(mux, "PUT /reviews/{id}", s.authed(s.updateReview))
	s.route(mux, "DELETE /reviews/{id}", s.authed(s.deleteReview))
	s.route(mux, "POST /shoppingcart", s.authed(s.accept))
	s.route(mux, "PUT /shoppingcart/{id}", s.authed(s.accept))
	s.route(mux, "DELETE /shoppingcart/{id}", s.authed(s.accept))
	s.route(mux, "POST /orders", s.authed(s.createOrder))
	s.route(mux, "GET /orders/user", s.authed(s.myOrders))
	s.route(mux, "POST /auth/login", s.login)
	s.route(mux, "POST /auth/register", s.register)
	s.route(mux, "GET /auth/me", s.authed(s.me))
	s.route(mux, "GET /auth/check-username", s.checkUsername)
	s.route(mux, "GET /auth/check-email", s.checkEmail)
	s.route(mux, "POST /users/change-password", s.authed(s.changePassword))

	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) seed() {
	s.categories = []models.Category{{ID: 1, Name: "Classics"}, {ID: 2, Name: "Programming"}}
	s.books = []models.Book{
		{ID: 1, Title: "The Great Gatsby", AuthorName: "F. Scott Fitzgerald", CategoryName: "Classics",
			Description: "Jazz age novel", Price: decimal.RequireFromString("12.99"), StockQuantity: 10},
		{ID: 2, Title: "Moby Dick", AuthorName: "Herman Melville", CategoryName: "Classics",
			Description: "A whale of a tale", Price: decimal.RequireFromString("9.50"), StockQuantity: 4},
		{ID: 3, Title: "The Go Programming Language", AuthorName: "Alan Donovan", CategoryName: "Programming",
			Description: "Go from the ground up", Price: decimal.RequireFromString("39.99"), StockQuantity: 0},
	}
	s.accounts["reader"] = &account{
		user:     models.User{ID: "u-1", UserName: "reader", Email: "reader@example.com", FirstName: "Rea", LastName: "Der", Roles: []string{"Customer"}},
		password: "Secret123",
	}
	s.reviews = []models.Review{
		{ID: 1, BookID: 1, BookTitle: "The Great Gatsby", UserName: "someone", Rating: 4, Comment: "Lovely", CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
}

// URL of the API root, suitable for apiclient.NewClient.
func (s *Server) BaseURL() string { return s.Server.URL }

// Fail makes the next n calls to route ("POST /orders") answer with status.
func (s *Server) Fail(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status<<16 | n
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastBody returns the JSON body of the most recent call to route.
func (s *Server) LastBody(route string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody[route]
}

// IssueToken signs userName in directly and returns its bearer token.
func (s *Server) IssueToken(userName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userName)
}

func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Server) AddBook(b models.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append(s.books, b)
}

func (s *Server) SetPrice(id int, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == id {
			s.books[i].Price = price
		}
	}
}

func (s *Server) AddOrder(userName string, o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userName] = append(s.orders[userName], o)
}

func (s *Server) issueLocked(userName string) string {
	if _, ok := s.accounts[userName]; !ok {
		s.accounts[userName] = &account{user: models.User{ID: "u-" + userName, UserName: userName, Email: userName + "@example.com"}}
	}
	s.seq++
	tok := fmt.Sprintf("token-%s-%d", userName, s.seq)
	s.tokens[tok] = userName
	return tok
}

type handler func(w http.ResponseWriter, r *http.Request)

type authedHandler func(w http.ResponseWriter, r *http.Request, userName string)

func (s *Server) route(mux *http.ServeMux, pattern string, h handler) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.calls[pattern]++
		if len(body) > 0 {
			s.lastBody[pattern] = json.RawMessage(body)
		}
		failure := s.failures[pattern]
		if failure != 0 {
			if n := failure & 0xffff; n <= 1 {
				delete(s.failures, pattern)
			} else {
				s.failures[pattern] = failure - 1
			}
		}
		s.mu.Unlock()

		if failure != 0 {
			writeJSON(w, failure>>16, map[string]string{"message": "injected failure"})
			return
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		h(w, r)
	})
}

func (s *Server) authed(h authedHandler) handler {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		userName, ok := s.tokens[tok]
		s.mu.Unlock()
		if tok == "" || !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r, userName)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.books)
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.ID == id {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
}

func (s *Server) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Book{}
	for _, b := range s.books {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.AuthorName), q) {
			out = append(out, b)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) booksByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := ""
	for _, c := range s.categories {
		if c.ID == id {
			name = c.Name
		}
	}
	out := []models.Book{}
	for _, b := range s.books {
		if name != "" && b.CategoryName == name {
			out = append(out, b)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) reviewsForBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Review{}
	for i := len(s.reviews) - 1; i >= 0; i-- {
		if s.reviews[i].BookID == id {
			out = append(out, s.reviews[i])
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) myReviews(w http.ResponseWriter, r *http.Request, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Review{}
	for _, rv := range s.reviews {
		if rv.UserName == userName {
			out = append(out, rv)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type reviewBody struct {
	BookID  int     `json:"bookId"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request, userName string) {
	var body reviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rv := models.Review{ID: s.seq, BookID: body.BookID, UserName: userName, Rating: body.Rating, CreatedAt: time.Now().UTC()}
	if body.Comment != nil {
		rv.Comment = *body.Comment
	}
	s.reviews = append(s.reviews, rv)
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) updateReview(w http.ResponseWriter, r *http.Request, userName string) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var body reviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reviews {
		if s.reviews[i].ID != id {
			continue
		}
		if s.reviews[i].UserName != userName {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "You can only edit your own reviews"})
			return
		}
		s.reviews[i].Rating = body.Rating
		s.reviews[i].Comment = ""
		if body.Comment != nil {
			s.reviews[i].Comment = *body.Comment
		}
		writeJSON(w, http.StatusOK, s.reviews[i])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request, userName string) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reviews {
		if s.reviews[i].ID == id {
			if s.reviews[i].UserName != userName {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			s.reviews = append(s.reviews[:i], s.reviews[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request, userName string) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type orderBody struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	Items           []struct {
		BookID    int             `json:"bookId"`
		Quantity  int             `json:"quantity"`
		UnitPrice decimal.Decimal `json:"unitPrice"`
	} `json:"items"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, userName string) {
	var body orderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	order := models.Order{
		ID:              s.seq,
		UserID:          s.accounts[userName].user.ID,
		OrderDate:       time.Now().UTC(),
		Status:          models.OrderPending,
		ShippingAddress: body.ShippingAddress.Address + ", " + body.ShippingAddress.City,
	}
	total := decimal.Zero
	for i, it := range body.Items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{ID: i + 1, BookID: it.BookID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	order.TotalAmount = total
	s.orders[userName] = append(s.orders[userName], order)
	writeJSON(w, http.StatusOK, map[string]any{"orderId": order.ID})
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.orders[userName]
	if out == nil {
		out = []models.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserName string `json:"userName"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[body.UserName]
	if !ok || acc.password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password"})
		return
	}
	user := acc.user
	writeJSON(w, http.StatusOK, models.AuthResponse{Success: true, Token: s.issueLocked(body.UserName), User: &user})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserName  string `json:"userName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accounts[body.UserName]; taken {
		writeJSON(w, http.StatusOK, models.AuthResponse{Success: false, Message: "Username is already taken"})
		return
	}
	s.seq++
	user := models.User{
		ID: fmt.Sprintf("u-%d", s.seq), UserName: body.UserName, Email: body.Email,
		FirstName: body.FirstName, LastName: body.LastName, CreatedAt: time.Now().UTC(), Roles: []string{"Customer"},
	}
	s.accounts[body.UserName] = &account{user: user, password: body.Password}
	writeJSON(w, http.StatusOK, models.AuthResponse{Success: true, Token: s.issueLocked(body.UserName), User: &user})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.accounts[userName].user)
}

func (s *Server) checkUsername(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("userName")
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.accounts[name]
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) checkEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(r.URL.Query().Get("email"))
	s.mu.Lock()
	defer s.mu.Unlock()
	exists := false
	for _, acc := range s.accounts {
		if strings.ToLower(acc.user.Email) == email {
			exists = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request, userName string) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[userName]
	if acc.password != body.CurrentPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
		return
	}
	acc.password = body.NewPassword
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
