package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdf-questions/internal/app"
	"pdf-questions/internal/batch"
	"pdf-questions/internal/config"
	"pdf-questions/internal/events"
	"pdf-questions/internal/logger"
	"pdf-questions/internal/output"
	"pdf-questions/internal/pdftext"
	"pdf-questions/internal/session"
)

type fakeExtractor struct {
	pages []string
	err   error
}

func (f fakeExtractor) Extract(string) ([]string, error) {
	return f.pages, f.err
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, apiKey, text string, count int) (string, error) {
	args := m.Called(ctx, apiKey, text, count)
	return args.String(0), args.Error(1)
}

func newTestDeps(t *testing.T, ex pdftext.Extractor, gen batch.QuestionGenerator) app.Deps {
	t.Helper()
	log := logger.Discard()
	out := output.NewFile(filepath.Join(t.TempDir(), "generated_questions.txt"))
	return app.Deps{
		Config: config.Config{
			DefaultQuestions: 20,
			SessionTTL:       3600,
		},
		Log:      log,
		Document: pdftext.NewDocument("policies.pdf", ex, log),
		Output:   out,
		Runner:   batch.NewRunner(gen, out, events.NewNoopBus(), log),
		Sessions: session.NewMemoryStore(),
		Bus:      events.NewNoopBus(),
	}
}

func postForm(t *testing.T, h http.Handler, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func formValues(key string, start, end, count int) url.Values {
	return url.Values{
		"api_key":    {key},
		"start_page": {fmt.Sprint(start)},
		"end_page":   {fmt.Sprint(end)},
		"count":      {fmt.Sprint(count)},
	}
}

func TestIndexHandler(t *testing.T) {
	tests := []struct {
		name       string
		extractor  fakeExtractor
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "renders form with page bounds",
			extractor:  fakeExtractor{pages: []string{"a", "b", "c"}},
			wantStatus: http.StatusOK,
			wantBody:   []string{"(3 pages)", `type="password"`, `max="3"`, `value="20"`},
		},
		{
			name:       "missing document",
			extractor:  fakeExtractor{err: fmt.Errorf("%w: policies.pdf", pdftext.ErrDocumentMissing)},
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"The file policies.pdf does not exist."},
		},
		{
			name:       "extraction failure",
			extractor:  fakeExtractor{err: errors.New("malformed xref")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"Error extracting text from PDF: malformed xref"},
		},
		{
			name:       "document without pages",
			extractor:  fakeExtractor{pages: []string{}},
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"No text extracted from the PDF."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t, tt.extractor, new(mockGenerator))
			rec := httptest.NewRecorder()
			newRouter(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestGenerateHandler(t *testing.T) {
	pages := []string{"A protects data.", "B defines terms.", "C lists duties."}

	tests := []struct {
		name       string
		form       url.Values
		setup      func(*mockGenerator)
		wantStatus int
		wantBody   []string
		calls      int
	}{
		{
			name: "generates for the selected range",
			form: formValues("sk-test", 1, 2, 3),
			setup: func(g *mockGenerator) {
				g.On("Generate", mock.Anything, "sk-test", "A protects data.", 3).Return("1. What does A protect?", nil).Once()
				g.On("Generate", mock.Anything, "sk-test", "B defines terms.", 3).Return("1. What does B define?", nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody: []string{
				"Generating questions for Page 1...",
				"Generated Questions:",
				"Page 1:\n1. What does A protect?\n\nPage 2:\n1. What does B define?\n",
				`href="/download"`,
			},
			calls: 2,
		},
		{
			name:       "start after end is rejected",
			form:       formValues("sk-test", 3, 1, 3),
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"Start page must be less than or equal to end page."},
		},
		{
			name:       "missing api key is rejected",
			form:       formValues("", 1, 1, 3),
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"Please enter your OpenAI API key to generate questions."},
		},
		{
			name:       "question count out of range",
			form:       formValues("sk-test", 1, 1, 101),
			wantStatus: http.StatusBadRequest,
			wantBody:   []string{"Questions per page must be between 1 and 100."},
		},
		{
			name: "every page failing warns the user",
			form: formValues("sk-bad", 2, 3, 5),
			setup: func(g *mockGenerator) {
				g.On("Generate", mock.Anything, "sk-bad", mock.Anything, 5).Return("", errors.New("401 Unauthorized")).Twice()
			},
			wantStatus: http.StatusOK,
			wantBody: []string{
				"Failed to generate questions for Page 2",
				"Failed to generate questions for Page 3",
				"No questions were generated.",
			},
			calls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			if tt.setup != nil {
				tt.setup(gen)
			}
			deps := newTestDeps(t, fakeExtractor{pages: pages}, gen)

			rec := postForm(t, newRouter(deps), tt.form)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			assert.NotContains(t, body, "sk-test", "api key must never be echoed")
			gen.AssertNumberOfCalls(t, "Generate", tt.calls)
		})
	}
}

func TestGenerateThenDownloadAndRevisit(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "sk-test", "only page", 4).Return("1. Q?", nil).Once()
	deps := newTestDeps(t, fakeExtractor{pages: []string{"only page"}}, gen)
	router := newRouter(deps)

	rec := postForm(t, router, formValues("sk-test", 1, 1, 4))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)

	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/download", nil))
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "Page 1:\n1. Q?\n", dl.Body.String())
	assert.Equal(t, output.ContentType, dl.Header().Get("Content-Type"))

	st, err := deps.Sessions.Get(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 4, st.Count)
	stored, err := json.Marshal(st)
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "sk-test")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	idx := httptest.NewRecorder()
	router.ServeHTTP(idx, req)
	assert.Equal(t, http.StatusOK, idx.Code)
	assert.Contains(t, idx.Body.String(), "1. Q?")
	assert.Contains(t, idx.Body.String(), `value="4"`)
	assert.Contains(t, idx.Body.String(), `href="/download"`)
}

func getIndex(t *testing.T, h http.Handler, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFailedSaveKeepsOnlyFormValues(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "sk-test", "only page", 4).Return("1. Q?", nil).Once()
	deps := newTestDeps(t, fakeExtractor{pages: []string{"only page"}}, gen)
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("not a directory"), 0o644))
	deps.Output = output.NewFile(filepath.Join(blocked, "generated_questions.txt"))
	deps.Runner = batch.NewRunner(gen, deps.Output, events.NewNoopBus(), deps.Log)
	router := newRouter(deps)

	rec := postForm(t, router, formValues("sk-test", 1, 1, 4))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not be saved for download")
	assert.NotContains(t, rec.Body.String(), `href="/download"`)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	st, err := deps.Sessions.Get(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 4, st.Count)
	assert.False(t, st.HasRun())
	assert.Empty(t, st.Output)
	assert.Empty(t, st.Statuses)

	idx := getIndex(t, router, cookies[0])
	assert.Equal(t, http.StatusOK, idx.Code)
	assert.Contains(t, idx.Body.String(), `value="4"`)
	assert.NotContains(t, idx.Body.String(), "Generated Questions:")
	assert.NotContains(t, idx.Body.String(), `href="/download"`)

	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/download", nil))
	assert.NotEqual(t, http.StatusOK, dl.Code)
}

func TestRevisitHidesDownloadOnceAnotherRunReplacesIt(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "sk-a", "only page", 2).Return("A questions", nil).Once()
	gen.On("Generate", mock.Anything, "sk-b", "only page", 2).Return("B questions", nil).Once()
	deps := newTestDeps(t, fakeExtractor{pages: []string{"only page"}}, gen)
	router := newRouter(deps)

	first := postForm(t, router, formValues("sk-a", 1, 1, 2))
	require.Equal(t, http.StatusOK, first.Code)
	second := postForm(t, router, formValues("sk-b", 1, 1, 2))
	require.Equal(t, http.StatusOK, second.Code)

	a := getIndex(t, router, first.Result().Cookies()...)
	assert.Contains(t, a.Body.String(), "A questions")
	assert.NotContains(t, a.Body.String(), `href="/download"`)
	assert.Contains(t, a.Body.String(), "The download now holds a newer run.")

	b := getIndex(t, router, second.Result().Cookies()...)
	assert.Contains(t, b.Body.String(), "B questions")
	assert.Contains(t, b.Body.String(), `href="/download"`)

	content, err := deps.Output.Read()
	require.NoError(t, err)
	assert.Equal(t, "Page 1:\nB questions\n", content)
}

func TestSessionStoreFailuresStillRender(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "sk-test", "p2", 3).Return("1. Q?", nil).Once()
	deps := newTestDeps(t, fakeExtractor{pages: []string{"p1", "p2"}}, gen)
	var logs bytes.Buffer
	deps.Log = logger.NewWithWriter(&logs, "info")
	store := new(session.MockStore)
	store.On("Get", mock.Anything, "sess-1").Return(nil, errors.New("redis: connection refused"))
	store.On("Save", mock.Anything, mock.AnythingOfType("*session.State"), time.Hour).Return(errors.New("redis: connection refused"))
	deps.Sessions = store
	router := newRouter(deps)
	cookie := &http.Cookie{Name: sessionCookie, Value: "sess-1"}

	idx := getIndex(t, router, cookie)
	assert.Equal(t, http.StatusOK, idx.Code)
	assert.Contains(t, idx.Body.String(), `name="start_page" min="1" max="2" value="1"`)
	assert.Contains(t, idx.Body.String(), `name="end_page" min="1" max="2" value="2"`)
	assert.Contains(t, idx.Body.String(), `value="20"`)
	assert.Contains(t, logs.String(), "failed to load session")

	rec := postForm(t, router, formValues("sk-test", 2, 2, 3), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1. Q?")
	assert.Contains(t, logs.String(), "failed to save session")
	assert.NotContains(t, logs.String(), "sk-test")

	store.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestDownloadBeforeGenerate(t *testing.T) {
	deps := newTestDeps(t, fakeExtractor{pages: []string{"p"}}, new(mockGenerator))
	rec := httptest.NewRecorder()
	newRouter(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIGenerateHandler(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "sk-test", "p1", 2).Return("Q1", nil).Once()
	gen.On("Generate", mock.Anything, "sk-test", "p2", 2).Return("", errors.New("timeout")).Once()
	deps := newTestDeps(t, fakeExtractor{pages: []string{"p1", "p2"}}, gen)

	body, _ := json.Marshal(generateRequest{APIKey: "sk-test", StartPage: 1, EndPage: 2, Count: 2})
	rec := httptest.NewRecorder()
	newRouter(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RunID     string         `json:"run_id"`
		Pages     []pageResponse `json:"pages"`
		Output    string         `json:"output"`
		Succeeded int            `json:"succeeded"`
		Failed    int            `json:"failed"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, []pageResponse{{Page: 1, Questions: "Q1"}, {Page: 2, Failed: true}}, resp.Pages)
	assert.Equal(t, "Page 1:\nQ1\n\nPage 2:\n"+batch.FailureNotice+"\n", resp.Output)
}

func TestAPIGenerateValidation(t *testing.T) {
	gen := new(mockGenerator)
	deps := newTestDeps(t, fakeExtractor{pages: []string{"p1", "p2"}}, gen)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"start after end", `{"api_key":"k","start_page":2,"end_page":1,"count":1}`, http.StatusBadRequest},
		{"end past document", `{"api_key":"k","start_page":1,"end_page":3,"count":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
