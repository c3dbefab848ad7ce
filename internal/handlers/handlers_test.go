package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/LucaVano/app-oferte-10-05/internal/auth"
	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/middleware"
	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/pdf"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
	"github.com/LucaVano/app-oferte-10-05/internal/templates"
	"github.com/LucaVano/app-oferte-10-05/internal/uploads"
	"github.com/LucaVano/app-oferte-10-05/web"
)

type fakeRenderer struct{}

func (fakeRenderer) Render(rec *models.Record, _ pdf.Mode, out string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", err
	}
	return out, os.WriteFile(out, []byte("%PDF-fake "+rec.OfferNumber), 0644)
}

type testApp struct {
	router  http.Handler
	quotes  *quotes.Service
	auth    *auth.Service
	dataDir string
	cookie  *http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dataDir := t.TempDir()
	st := store.New(dataDir)
	decoder := formdecode.New(uploads.NewStore(t.TempDir()))
	q := quotes.NewService(st, store.NewCounter(dataDir), decoder, fakeRenderer{})

	hash, err := bcrypt.GenerateFromPassword([]byte("segreta"), bcrypt.MinCost)
	require.NoError(t, err)
	a := auth.NewService("admin", string(hash), []byte("test-secret"))

	tmpl, err := templates.New(web.TemplatesFS)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(q, a, tmpl, 10).Register(r)

	session, err := a.CreateSession(&auth.User{Username: "admin"})
	require.NoError(t, err)

	return &testApp{
		router:  r,
		quotes:  q,
		auth:    a,
		dataDir: dataDir,
		cookie:  &http.Cookie{Name: middleware.SessionCookieName, Value: session.Token},
	}
}

func (app *testApp) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(app.cookie)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func sampleForm() url.Values {
	return url.Values{
		"date":              {"2025-03-01"},
		"customer":          {"Caffè Centrale"},
		"customer_email":    {"bar@example.com"},
		"address":           {"Via Roma 1, Brescia"},
		"offer_description": {"Fornitura attrezzature"},
		"offer_number":      {"2025-0007"},
		"tab_0type_":        {"single_product"},
		"product_0name_":    {"Forno elettrico"},
		"unit_0price_":      {"1000"},
		"quantity_0":        {"2"},
	}
}

// createOffer posts the form and returns the id of the new quote.
func (app *testApp) createOffer(t *testing.T, form url.Values) string {
	t.Helper()
	res := app.do(t, http.MethodPost, "/nuova-offerta", form)
	require.Equal(t, http.StatusSeeOther, res.Code)

	loc, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.Path, "/offerta/"), "unexpected redirect %s", loc)
	assert.Equal(t, "Offerta creata con successo!", loc.Query().Get("success"))
	return strings.TrimPrefix(loc.Path, "/offerta/")
}

func decodeResult(t *testing.T, res *httptest.ResponseRecorder) result {
	t.Helper()
	var out result
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	return out
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/", "/offerte-in-attesa", "/offerta/abc", "/api/next-offer-number"} {
		t.Run(target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			res := httptest.NewRecorder()
			app.router.ServeHTTP(res, req)

			assert.Equal(t, http.StatusSeeOther, res.Code)
			assert.True(t, strings.HasPrefix(res.Header().Get("Location"), "/login"))
		})
	}
}

func TestLoginPage(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/login?next=%2Fofferte-accettate", nil)
	res := httptest.NewRecorder()
	app.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `name="next" value="/offerte-accettate"`)
}

func TestLoginPage_AlreadyLoggedIn(t *testing.T) {
	app := newTestApp(t)

	res := app.do(t, http.MethodGet, "/login", nil)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name         string
		form         url.Values
		wantLocation string
		wantCookie   bool
	}{
		{
			name:         "valid with next",
			form:         url.Values{"username": {"admin"}, "password": {"segreta"}, "next": {"/offerte-accettate"}},
			wantLocation: "/offerte-accettate",
			wantCookie:   true,
		},
		{
			name:         "external next ignored",
			form:         url.Values{"username": {"admin"}, "password": {"segreta"}, "next": {"https://evil.example/"}},
			wantLocation: "/",
			wantCookie:   true,
		},
		{
			name:         "wrong password",
			form:         url.Values{"username": {"admin"}, "password": {"sbagliata"}},
			wantLocation: "/login?error=" + url.QueryEscape("Username o password non validi"),
		},
		{
			name:         "wrong password keeps next",
			form:         url.Values{"username": {"admin"}, "password": {"x"}, "next": {"/nuova-offerta"}},
			wantLocation: "/login?next=%2Fnuova-offerta&error=" + url.QueryEscape("Username o password non validi"),
		},
		{
			name:         "missing fields",
			form:         url.Values{"username": {"admin"}},
			wantLocation: "/login?error=" + url.QueryEscape("Username e password sono obbligatori"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			res := httptest.NewRecorder()
			app.router.ServeHTTP(res, req)

			assert.Equal(t, http.StatusSeeOther, res.Code)
			assert.Equal(t, tt.wantLocation, res.Header().Get("Location"))

			var session *http.Cookie
			for _, c := range res.Result().Cookies() {
				if c.Name == middleware.SessionCookieName {
					session = c
				}
			}
			if !tt.wantCookie {
				assert.Nil(t, session)
				return
			}
			require.NotNil(t, session)
			_, err := app.auth.ValidateSession(session.Value)
			assert.NoError(t, err)
		})
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)

	res := app.do(t, http.MethodGet, "/logout", nil)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login?success="+url.QueryEscape("Logout effettuato con successo"), res.Header().Get("Location"))
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestNewOfferPage_IssuesNumber(t *testing.T) {
	app := newTestApp(t)
	year := time.Now().Year()

	res := app.do(t, http.MethodGet, "/nuova-offerta", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), fmt.Sprintf(`value="%d-0001"`, year))

	res = app.do(t, http.MethodGet, "/api/next-offer-number", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, fmt.Sprintf("%d-0002", year), body["next_number"])
}

func TestCreateAndViewOffer(t *testing.T) {
	app := newTestApp(t)

	id := app.createOffer(t, sampleForm())

	rec, err := app.quotes.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Caffè Centrale", rec.Customer)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Equal(t, "Offerta_2025-0007.pdf", rec.PDFPath)
	require.Len(t, rec.Tabs, 1)
	assert.Equal(t, "Forno elettrico", rec.Tabs[0].Single.ProductName)

	res := app.do(t, http.MethodGet, "/offerta/"+id+"?success=ok", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Offerta 2025-0007")
	assert.Contains(t, body, "Forno elettrico")
	assert.Contains(t, body, "2.000,00 €")
	assert.Contains(t, body, "alert-success")
}

func TestCreateOffer_Invalid(t *testing.T) {
	app := newTestApp(t)

	form := sampleForm()
	form.Del("customer")
	res := app.do(t, http.MethodPost, "/nuova-offerta", form)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	loc, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/nuova-offerta", loc.Path)
	assert.Equal(t, "Campi mancanti o non validi: cliente", loc.Query().Get("error"))

	all, err := app.quotes.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateOffer_DuplicateNumber(t *testing.T) {
	app := newTestApp(t)
	first := app.createOffer(t, sampleForm())

	form := sampleForm()
	form.Set("customer", "CAFFÈ CENTRALE")
	res := app.do(t, http.MethodPost, "/nuova-offerta", form)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	loc, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/nuova-offerta", loc.Path)
	assert.Equal(t, "Esiste già un'offerta con questo numero per il cliente", loc.Query().Get("error"))

	all, err := app.quotes.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first, all[0].ID)
}

func TestViewOffer_NotFound(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/offerta/missing", "/offerta/missing/modifica"} {
		res := app.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusSeeOther, res.Code)
		assert.Equal(t, "/?error="+url.QueryEscape("Offerta non trovata"), res.Header().Get("Location"))
	}
}

func TestOfferJSON(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())

	res := app.do(t, http.MethodGet, "/offerta/"+id+"/json", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rec))
	assert.Equal(t, "2025-0007", rec["offer_number"])
	assert.Equal(t, "in_attesa", rec["status"])

	res = app.do(t, http.MethodGet, "/offerta/missing/json", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.JSONEq(t, `{"error":"Offerta non trovata"}`, res.Body.String())
}

func TestIndexAndFilteredLists(t *testing.T) {
	app := newTestApp(t)
	pendingID := app.createOffer(t, sampleForm())

	other := sampleForm()
	other.Set("customer", "Hotel Lago")
	other.Set("offer_number", "2025-0008")
	acceptedID := app.createOffer(t, other)
	require.NoError(t, app.quotes.SetStatus(acceptedID, models.StatusAccepted))

	res := app.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), pendingID)
	assert.Contains(t, res.Body.String(), acceptedID)

	res = app.do(t, http.MethodGet, "/offerte-accettate", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Offerte Accettate")
	assert.Contains(t, res.Body.String(), "fa-check-circle")
	assert.Contains(t, res.Body.String(), "Hotel Lago")
	assert.NotContains(t, res.Body.String(), "Caffè Centrale")

	res = app.do(t, http.MethodGet, "/offerte-in-attesa", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Offerte in Attesa")
	assert.Contains(t, res.Body.String(), "Caffè Centrale")
	assert.NotContains(t, res.Body.String(), "Hotel Lago")
}

func TestUpdateStatus(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())

	tests := []struct {
		name       string
		id         string
		status     string
		wantCode   int
		wantResult result
	}{
		{"invalid status", id, "archiviata", http.StatusBadRequest, result{Error: "Stato non valido"}},
		{"missing offer", "missing", "accettata", http.StatusNotFound, result{Error: "Offerta non trovata"}},
		{"accept", id, "accettata", http.StatusOK, result{Success: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := app.do(t, http.MethodPost, "/update_offer_status/"+tt.id, url.Values{"status": {tt.status}})
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Equal(t, tt.wantResult, decodeResult(t, res))
		})
	}

	rec, err := app.quotes.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, rec.Status)
}

func TestEditOffer(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())
	require.NoError(t, app.quotes.SetStatus(id, models.StatusAccepted))

	res := app.do(t, http.MethodGet, "/offerta/"+id+"/modifica", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"product_name":"Forno elettrico"`)
	assert.Contains(t, res.Body.String(), `action="/offerta/`+id+`/modifica"`)

	form := sampleForm()
	form.Set("offer_number", "2025-0009")
	form.Set("unit_0price_", "1500")
	res = app.do(t, http.MethodPost, "/offerta/"+id+"/modifica", form)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/offerta/"+id+"?success="+url.QueryEscape("Offerta aggiornata con successo!"), res.Header().Get("Location"))

	rec, err := app.quotes.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "2025-0009", rec.OfferNumber)
	assert.Equal(t, models.StatusAccepted, rec.Status)
	assert.Equal(t, "1500", rec.Tabs[0].Single.UnitPrice)
}

func TestEditOffer_Missing(t *testing.T) {
	app := newTestApp(t)

	res := app.do(t, http.MethodPost, "/offerta/missing/modifica", sampleForm())

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/?error="+url.QueryEscape("Offerta non trovata"), res.Header().Get("Location"))
}

func TestDownloadPDF(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())

	res := app.do(t, http.MethodGet, "/offerta/"+id+"/pdf", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/pdf", res.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Offerta_2025-0007.pdf"`, res.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(res.Body.String(), "%PDF-"))

	res = app.do(t, http.MethodGet, "/offerta/missing/pdf", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/offerta/missing?error="+url.QueryEscape("PDF non trovato"), res.Header().Get("Location"))
}

func TestDeleteOffer(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())

	res := app.do(t, http.MethodPost, "/offerta/"+id+"/elimina", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, result{Success: true}, decodeResult(t, res))

	_, err := app.quotes.Get(id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	res = app.do(t, http.MethodPost, "/offerta/"+id+"/elimina", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, result{Error: "Offerta non trovata"}, decodeResult(t, res))
}

func TestSaveOffer(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())

	res := app.do(t, http.MethodPost, "/offerta/"+id+"/salva", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, result{Success: true}, decodeResult(t, res))

	res = app.do(t, http.MethodPost, "/offerta/missing/salva", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestSendOffer_MailerDisabled(t *testing.T) {
	app := newTestApp(t)
	id := app.createOffer(t, sampleForm())

	res := app.do(t, http.MethodPost, "/offerta/"+id+"/invia", nil)

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, result{Error: "Invio e-mail non configurato"}, decodeResult(t, res))
}

func TestPreview(t *testing.T) {
	app := newTestApp(t)

	res := app.do(t, http.MethodPost, "/preview_pdf", url.Values{
		"tab_0type_":     {"single_product"},
		"product_0name_": {"Forno"},
	})
	require.Equal(t, http.StatusOK, res.Code)
	out := decodeResult(t, res)
	require.True(t, out.Success)
	require.True(t, strings.HasPrefix(out.PreviewURL, "/preview/preview_"))

	res = app.do(t, http.MethodGet, out.PreviewURL, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/pdf", res.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-fake TEMP-0001", res.Body.String())

	all, err := app.quotes.List()
	require.NoError(t, err)
	assert.Empty(t, all, "preview must not create a record")
}

func TestServePreview_Rejects(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(app.dataDir, "secret.pdf"), []byte("x"), 0644))

	for _, name := range []string{"secret.pdf", "preview_0000.pdf", "..%2Fsecret.pdf"} {
		res := app.do(t, http.MethodGet, "/preview/"+name, nil)
		assert.Equal(t, http.StatusNotFound, res.Code, name)
	}
}
