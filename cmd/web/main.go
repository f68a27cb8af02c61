package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pdf-questions/internal/app"
	"pdf-questions/internal/batch"
	"pdf-questions/internal/httputil"
	"pdf-questions/internal/pdftext"
	"pdf-questions/internal/session"
)

const sessionCookie = "pdfq_session"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("web ui listening", "addr", srv.Addr, "document", deps.Document.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("web ui stopped", "err", err)
	}
}

func newRouter(deps app.Deps) chi.Router {
	r := httputil.NewRouter(deps.Log)
	r.Get("/", indexHandler(deps))
	r.Post("/generate", generateHandler(deps))
	r.Post("/api/generate", apiGenerateHandler(deps))
	r.Get("/download", deps.Output.ServeHTTP)
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}

type pageView struct {
	DocumentPath string
	DocError     string
	TotalPages   int
	StartPage    int
	EndPage      int
	Count        int
	MinQuestions int
	MaxQuestions int

	Error     string
	RunError  string
	Statuses  []string
	Output    string
	HasRun    bool
	AllFailed bool

	// Downloadable is set when the shared output file holds this run.
	Downloadable bool
	Superseded   bool
}

func newPageView(deps app.Deps, pages []string, docErr error) pageView {
	v := pageView{
		DocumentPath: deps.Document.Path(),
		TotalPages:   len(pages),
		StartPage:    1,
		EndPage:      len(pages),
		Count:        deps.Config.DefaultQuestions,
		MinQuestions: batch.MinQuestions,
		MaxQuestions: batch.MaxQuestions,
	}
	if docErr != nil {
		v.DocError = documentErrorMessage(deps.Document.Path(), docErr)
	}
	return v
}

// withSession pre-fills the form and the last run from stored state. latest
// is the run the output file currently holds; the download link is only
// offered while that is still this session's run.
func (v pageView) withSession(st *session.State, latest uuid.UUID) pageView {
	if st == nil {
		return v
	}
	if st.StartPage >= 1 && st.StartPage <= v.TotalPages {
		v.StartPage = st.StartPage
	}
	if st.EndPage >= v.StartPage && st.EndPage <= v.TotalPages {
		v.EndPage = st.EndPage
	}
	if st.Count >= batch.MinQuestions && st.Count <= batch.MaxQuestions {
		v.Count = st.Count
	}
	if st.HasRun() {
		v.Statuses = st.Statuses
		v.Output = st.Output
		v.HasRun = true
		v.AllFailed = st.AllFailed
		v.Downloadable = latest != uuid.Nil && st.RunID == latest.String()
		v.Superseded = !v.Downloadable
	}
	return v
}

func documentErrorMessage(path string, err error) string {
	switch {
	case errors.Is(err, pdftext.ErrDocumentMissing):
		return fmt.Sprintf("The file %s does not exist.", path)
	case errors.Is(err, pdftext.ErrNoText):
		return "No text extracted from the PDF."
	default:
		return fmt.Sprintf("Error extracting text from PDF: %v", err)
	}
}

func render(deps app.Deps, w http.ResponseWriter, status int, v pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, v); err != nil {
		deps.Log.Error("failed to render page", "err", err)
	}
}

func indexHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, docErr := deps.Document.Pages()
		v := newPageView(deps, pages, docErr)
		if docErr != nil {
			render(deps, w, http.StatusInternalServerError, v)
			return
		}
		render(deps, w, http.StatusOK, v.withSession(loadSession(deps, r), deps.Runner.LatestRunID()))
	}
}

func generateHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, docErr := deps.Document.Pages()
		v := newPageView(deps, pages, docErr)
		if docErr != nil {
			render(deps, w, http.StatusInternalServerError, v)
			return
		}
		if err := r.ParseForm(); err != nil {
			v.Error = "Could not read the submitted form."
			render(deps, w, http.StatusBadRequest, v)
			return
		}

		params := batch.Params{
			APIKey:    r.PostForm.Get("api_key"),
			StartPage: formInt(r, "start_page"),
			EndPage:   formInt(r, "end_page"),
			Count:     formInt(r, "count"),
		}
		v.StartPage, v.EndPage, v.Count = params.StartPage, params.EndPage, params.Count

		// A run cannot be aborted once started, even if the browser goes away.
		res, err := deps.Runner.Run(context.WithoutCancel(r.Context()), pages, params, nil)
		var verr *batch.ValidationError
		if errors.As(err, &verr) {
			v.Error = verr.Message
			render(deps, w, http.StatusBadRequest, v)
			return
		}

		st := &session.State{
			StartPage: params.StartPage,
			EndPage:   params.EndPage,
			Count:     params.Count,
		}
		v.Statuses = res.Statuses
		status := http.StatusOK
		if err != nil {
			// Nothing was saved, so the session keeps only the form values.
			deps.Log.Error("generation run failed", "run_id", res.RunID, "err", err)
			v.RunError = "Questions were generated but could not be saved for download."
			status = http.StatusInternalServerError
		} else {
			v.Output = res.Output
			v.HasRun = true
			v.AllFailed = res.AllFailed()
			v.Downloadable = true
			st.RunID = res.RunID.String()
			st.Statuses = res.Statuses
			st.Output = res.Output
			st.AllFailed = res.AllFailed()
		}

		saveSession(deps, w, r, st)
		render(deps, w, status, v)
	}
}

type generateRequest struct {
	APIKey    string `json:"api_key"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Count     int    `json:"count"`
}

type pageResponse struct {
	Page      int    `json:"page"`
	Questions string `json:"questions,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
}

func apiGenerateHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		pages, err := deps.Document.Pages()
		if err != nil {
			httputil.Fail(deps.Log, w, documentErrorMessage(deps.Document.Path(), err), err, http.StatusInternalServerError)
			return
		}

		res, err := deps.Runner.Run(context.WithoutCancel(r.Context()), pages, batch.Params{
			APIKey:    req.APIKey,
			StartPage: req.StartPage,
			EndPage:   req.EndPage,
			Count:     req.Count,
		}, nil)
		var verr *batch.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Message, "field": verr.Field})
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to save generated questions", err, http.StatusInternalServerError)
			return
		}

		out := make([]pageResponse, 0, len(res.Pages))
		for _, pr := range res.Pages {
			out = append(out, pageResponse{Page: pr.Page, Questions: pr.Questions, Failed: !pr.OK()})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"run_id":    res.RunID.String(),
			"pages":     out,
			"statuses":  res.Statuses,
			"output":    res.Output,
			"succeeded": res.Succeeded,
			"failed":    res.Failed,
		})
	}
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.PostForm.Get(key))
	if err != nil {
		return 0
	}
	return n
}

func loadSession(deps app.Deps, r *http.Request) *session.State {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	st, err := deps.Sessions.Get(r.Context(), c.Value)
	if err != nil {
		deps.Log.Warn("failed to load session", "err", err)
		return nil
	}
	return st
}

// saveSession stores st under the request's session, issuing a cookie for a
// new one. Failures only cost the pre-filled form on the next visit.
func saveSession(deps app.Deps, w http.ResponseWriter, r *http.Request, st *session.State) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		st.ID = c.Value
	} else {
		st.ID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    st.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	st.UpdatedAt = time.Now().UTC()
	if err := deps.Sessions.Save(r.Context(), st, deps.SessionTTL()); err != nil {
		deps.Log.Warn("failed to save session", "err", err)
	}
}
