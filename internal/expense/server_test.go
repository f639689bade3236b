package expense

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/expense-tracker/internal/parsing"
	"github.com/zombor/expense-tracker/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		text        *mockTextSource
		clock       *fixedTime
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		text = &mockTextSource{text: coffeeText}
		clock = &fixedTime{now: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)}
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		parser := parsing.NewParser(parsing.WithClock(parsing.ClockFunc(clock.Now)))
		service := NewServiceWithDeps(db, text, parser, storage, &sequentialIDs{}, clock)
		server = NewServerWithMux(service, auth, http.NewServeMux())

		ghttpServer = ghttp.NewServer()
		for _, method := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	doJSON := func(method, path string, v any) *http.Response {
		data, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return do(method, path, bytes.NewReader(data), "application/json")
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	errorOf := func(resp *http.Response) string {
		var body map[string]string
		decode(resp, &body)
		return body["error"]
	}

	upload := func(filename string, data []byte, capture string) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		if filename != "" {
			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			part.Write(data)
		}
		if capture != "" {
			Expect(writer.WriteField("capture", capture)).To(Succeed())
		}
		Expect(writer.Close()).To(Succeed())
		return do("POST", "/api/receipts/scan", &b, writer.FormDataContentType())
	}

	Describe("GET /healthz", func() {
		It("should return ok", func() {
			resp := do("GET", "/healthz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /api/receipts/scan", func() {
		When("the scan succeeds", func() {
			It("should return the draft and a pre-filled form", func() {
				resp := upload("receipt.jpg", []byte("fake image data"), "cap-7")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var body struct {
					Receipt         parsing.ReceiptData `json:"receipt"`
					ReceiptFilename string              `json:"receipt_filename"`
					ContentType     string              `json:"content_type"`
					Text            string              `json:"text"`
					Input           ExpenseInput        `json:"input"`
				}
				decode(resp, &body)
				Expect(body.Receipt.Merchant).To(Equal("Joe's Coffee Shop"))
				Expect(body.Receipt.Date.Format(parsing.DateLayout)).To(Equal("2024-03-10"))
				Expect(body.ReceiptFilename).To(Equal("id-1_receipt.jpg"))
				Expect(body.ContentType).To(Equal("image/jpeg"))
				Expect(body.Text).To(Equal(coffeeText))
				Expect(body.Input.Description).To(Equal("Joe's Coffee Shop"))
				Expect(body.Input.Amount.Equal(decimal.RequireFromString("8.37"))).To(BeTrue())
				Expect(body.Input.Category).To(Equal(OtherCategory))
			})

			It("should pass the capture key to the text source", func() {
				upload("receipt.jpg", []byte("fake image data"), "cap-7")
				Expect(text.lastKey).To(Equal("cap-7"))
			})

			It("should infer the content type from the extension", func() {
				resp := upload("scan.pdf", []byte("%PDF-1.7"), "")
				var body struct {
					ContentType string `json:"content_type"`
				}
				decode(resp, &body)
				Expect(body.ContentType).To(Equal("application/pdf"))
			})
		})

		When("no file is provided", func() {
			It("should return Bad Request", func() {
				resp := upload("", nil, "cap-1")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(errorOf(resp)).To(ContainSubstring("file"))
			})
		})

		When("the form is not multipart", func() {
			It("should return Bad Request", func() {
				resp := do("POST", "/api/receipts/scan", strings.NewReader("invalid"), "multipart/form-data")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(errorOf(resp)).To(Equal("Error parsing form"))
			})
		})

		DescribeTable("text extraction failures",
			func(err error, status int) {
				text.err = err
				resp := upload("receipt.jpg", []byte("fake image data"), "")
				Expect(resp.StatusCode).To(Equal(status))
				Expect(errorOf(resp)).NotTo(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			},
			Entry("timeout", fmt.Errorf("extracting text: %w", scanning.ErrTimeout), http.StatusGatewayTimeout),
			Entry("superseded", fmt.Errorf("extracting text: %w", scanning.ErrSuperseded), http.StatusConflict),
			Entry("other", errors.New("ocr unavailable"), http.StatusInternalServerError),
		)
	})

	Describe("POST /api/receipts/parse", func() {
		It("should parse the text body", func() {
			resp := do("POST", "/api/receipts/parse", strings.NewReader(coffeeText), "text/plain")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var receipt parsing.ReceiptData
			decode(resp, &receipt)
			Expect(receipt.Merchant).To(Equal("Joe's Coffee Shop"))
			Expect(receipt.Amount.Decimal.Equal(decimal.RequireFromString("8.37"))).To(BeTrue())
		})

		It("should return an empty result for a blank body", func() {
			resp := do("POST", "/api/receipts/parse", strings.NewReader("  "), "text/plain")
			var body map[string]any
			decode(resp, &body)
			Expect(body["amount"]).To(BeNil())
			Expect(body["date"]).To(BeNil())
			Expect(body["items"]).To(BeEmpty())
			Expect(body["confidence"]).To(BeNumerically("==", 0))
		})
	})

	Describe("expenses", func() {
		BeforeEach(func() {
			db.expenses["e1"] = &Expense{
				ID:              "e1",
				Amount:          decimal.RequireFromString("8.37"),
				Description:     "Coffee",
				Category:        "Food & Dining",
				Date:            time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
				ReceiptFilename: "e1.png",
				ContentType:     "image/png",
				FromReceipt:     true,
			}
			db.expenses["e2"] = &Expense{
				ID:          "e2",
				Amount:      decimal.RequireFromString("40"),
				Description: "Train",
				Category:    "Travel",
				Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			}
			storage.files["e1.png"] = []byte("png bytes")
		})

		Describe("GET /api/expenses", func() {
			It("should list all expenses", func() {
				resp := do("GET", "/api/expenses", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var expenses []*Expense
				decode(resp, &expenses)
				Expect(expenses).To(HaveLen(2))
				Expect(expenses[0].ID).To(Equal("e1"))
			})

			It("should apply the query filter", func() {
				resp := do("GET", "/api/expenses?category=Travel&from=2024-03-01&to=2024-03-05", nil, "")
				var expenses []*Expense
				decode(resp, &expenses)
				Expect(expenses).To(HaveLen(1))
				Expect(expenses[0].ID).To(Equal("e2"))
			})

			It("should reject a malformed date", func() {
				resp := do("GET", "/api/expenses?from=yesterday", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(errorOf(resp)).To(ContainSubstring("YYYY-MM-DD"))
			})

			It("should return an empty array when nothing matches", func() {
				resp := do("GET", "/api/expenses?category=Education", nil, "")
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})

			It("should return Internal Server Error when the database fails", func() {
				db.listErr = errors.New("db down")
				resp := do("GET", "/api/expenses", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})

		Describe("POST /api/expenses", func() {
			It("should create the expense", func() {
				resp := doJSON("POST", "/api/expenses", map[string]any{
					"amount":      "12.50",
					"description": "Lunch",
					"category":    "Food & Dining",
					"date":        "2024-03-18",
				})
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var expense Expense
				decode(resp, &expense)
				Expect(expense.ID).To(Equal("id-1"))
				Expect(expense.Amount.Equal(decimal.RequireFromString("12.5"))).To(BeTrue())
				Expect(db.expenses).To(HaveKey("id-1"))
			})

			It("should accept a numeric amount", func() {
				resp := doJSON("POST", "/api/expenses", map[string]any{"amount": 3.5, "description": "Snack"})
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			})

			It("should return validation messages", func() {
				resp := doJSON("POST", "/api/expenses", map[string]any{"amount": "0", "description": "Lunch"})
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(errorOf(resp)).To(Equal("please enter a valid amount"))
			})

			It("should reject malformed JSON", func() {
				resp := do("POST", "/api/expenses", strings.NewReader("{"), "application/json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(errorOf(resp)).To(Equal("Invalid request body"))
			})
		})

		Describe("GET /api/expenses/{id}", func() {
			It("should return the expense", func() {
				resp := do("GET", "/api/expenses/e1", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var expense Expense
				decode(resp, &expense)
				Expect(expense.Description).To(Equal("Coffee"))
			})

			It("should return Not Found for a missing expense", func() {
				resp := do("GET", "/api/expenses/nope", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(errorOf(resp)).To(Equal("Expense not found"))
			})
		})

		Describe("PUT /api/expenses/{id}", func() {
			It("should update the expense", func() {
				resp := doJSON("PUT", "/api/expenses/e2", map[string]any{
					"amount":      "45",
					"description": "Train return",
					"category":    "Travel",
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(db.expenses["e2"].Description).To(Equal("Train return"))
			})

			It("should return Not Found for a missing expense", func() {
				resp := doJSON("PUT", "/api/expenses/nope", map[string]any{"amount": "1", "description": "x"})
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		Describe("DELETE /api/expenses/{id}", func() {
			It("should delete the expense and its image", func() {
				resp := do("DELETE", "/api/expenses/e1", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				Expect(db.expenses).NotTo(HaveKey("e1"))
				Expect(storage.files).NotTo(HaveKey("e1.png"))
			})

			It("should return Not Found for a missing expense", func() {
				resp := do("DELETE", "/api/expenses/nope", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})

			It("should return Internal Server Error when the database fails", func() {
				db.deleteErr = errors.New("db down")
				resp := do("DELETE", "/api/expenses/e1", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(errorOf(resp)).To(Equal("Internal server error"))
			})
		})

		Describe("GET /api/expenses/{id}/receipt", func() {
			It("should return the image with its content type", func() {
				resp := do("GET", "/api/expenses/e1/receipt", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(body).To(Equal([]byte("png bytes")))
			})

			It("should return Not Found for an expense without a receipt", func() {
				resp := do("GET", "/api/expenses/e2/receipt", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(errorOf(resp)).To(Equal("File not found"))
			})
		})

		Describe("GET /api/expenses/totals", func() {
			It("should return totals, largest first", func() {
				resp := do("GET", "/api/expenses/totals", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var totals []CategoryTotal
				decode(resp, &totals)
				Expect(totals).To(HaveLen(2))
				Expect(totals[0].Category).To(Equal("Travel"))
				Expect(totals[1].Count).To(Equal(1))
			})
		})

		Describe("GET /api/expenses/export", func() {
			It("should download a workbook", func() {
				resp := do("GET", "/api/expenses/export?category=Travel", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal(XLSXContentType))
				Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("expenses-2024-03-20.xlsx"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				// xlsx is a zip archive
				Expect(bytes.HasPrefix(body, []byte("PK"))).To(BeTrue())
			})

			It("should reject a malformed date", func() {
				resp := do("GET", "/api/expenses/export?to=03-2024", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("categories", func() {
		It("should list the categories", func() {
			resp := do("GET", "/api/categories", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var categories []*Category
			decode(resp, &categories)
			Expect(categories).To(HaveLen(len(DefaultCategories)))
		})

		It("should create a category", func() {
			resp := doJSON("POST", "/api/categories", Category{Name: "Pet Care", Icon: "🐶"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(db.categories).To(HaveKey("Pet Care"))
		})

		It("should reject a duplicate category", func() {
			resp := doJSON("POST", "/api/categories", Category{Name: "Travel"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorOf(resp)).To(ContainSubstring("already exists"))
		})

		It("should delete a custom category by escaped name", func() {
			db.categories["Pet Care"] = &Category{Name: "Pet Care"}
			resp := do("DELETE", "/api/categories/Pet%20Care", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.categories).NotTo(HaveKey("Pet Care"))
		})

		It("should refuse to delete a default category", func() {
			resp := do("DELETE", "/api/categories/Travel", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorOf(resp)).To(Equal("default categories cannot be deleted"))
		})

		It("should return Not Found for a missing category", func() {
			resp := do("DELETE", "/api/categories/Yachts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do("OPTIONS", "/api/expenses", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
		})

		It("should set headers on errors", func() {
			resp := do("GET", "/api/expenses/nope", nil, "")
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("authentication", func() {
		basic := func(user, pass string) string {
			return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
		}

		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		request := func(authorization string) *http.Response {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/categories", nil)
			Expect(err).NotTo(HaveOccurred())
			if authorization != "" {
				req.Header.Set("Authorization", authorization)
			}
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(resp.Body.Close)
			return resp
		}

		It("should reject requests without credentials", func() {
			resp := request("")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		DescribeTable("credentials",
			func(authorization string, status int) {
				Expect(request(authorization).StatusCode).To(Equal(status))
			},
			Entry("valid", basic("admin", "secret"), http.StatusOK),
			Entry("wrong password", basic("admin", "nope"), http.StatusUnauthorized),
			Entry("wrong user", basic("root", "secret"), http.StatusUnauthorized),
			Entry("not basic", "Bearer token", http.StatusUnauthorized),
			Entry("bad encoding", "Basic !!!", http.StatusUnauthorized),
			Entry("no colon", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin")), http.StatusUnauthorized),
		)

		It("should leave the health check open", func() {
			resp := do("GET", "/healthz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
