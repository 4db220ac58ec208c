package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/generator"
	"github.com/kalambet/forlove/internal/prompt"
	"github.com/kalambet/forlove/internal/proxy"
)

const maxRequestBodySize = 1 << 20 // 1MB

const aliveMessage = "Forlove AI API is alive. Please use POST for generation."

// Upstream is the chat completion API the service calls.
type Upstream interface {
	Chat(ctx context.Context, req proxy.ChatRequest) (proxy.ChatResponse, error)
}

// GenerationService turns generation requests into upstream completions.
// It also satisfies orchestrator.Transport, so in-process callers skip HTTP.
type GenerationService struct {
	upstream Upstream
	opts     prompt.Options
	logger   *slog.Logger
}

func NewGenerationService(upstream Upstream, opts prompt.Options) *GenerationService {
	return &GenerationService{upstream: upstream, opts: opts, logger: slog.Default()}
}

// Generate runs one completion for req and keeps the first
// generator.CandidateCount non-empty candidates. Upstream failures are
// returned as is; output without any usable text is a
// *generator.MalformedError.
func (s *GenerationService) Generate(ctx context.Context, req generator.Request) ([]generator.WireCandidate, error) {
	start := time.Now()
	resp, err := s.upstream.Chat(ctx, prompt.Build(req, s.opts))
	if err != nil {
		return nil, err
	}

	var out []generator.WireCandidate
	for _, c := range prompt.ParseCandidates(resp.Content()) {
		if c.Text == "" {
			continue
		}
		out = append(out, c)
		if len(out) == generator.CandidateCount {
			break
		}
	}
	s.logger.Debug("upstream completion",
		"main_category", req.MainCategory.Token(),
		"sub_category", req.SubCategory.Token(),
		"candidates", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if len(out) == 0 {
		return nil, &generator.MalformedError{Reason: "empty model output"}
	}
	return out, nil
}

// generateRequest is the lenient inbound form: unknown categories fall back
// to defaults instead of failing the decode.
type generateRequest struct {
	MainCategory string                 `json:"main_category"`
	SubCategory  string                 `json:"sub_category"`
	Count        int                    `json:"count"`
	Context      generator.Context      `json:"context"`
	StyleParams  *generator.StyleParams `json:"style_params"`
	ConfigV2     *generator.ConfigV2    `json:"config_v2"`
}

func (g generateRequest) toRequest() generator.Request {
	main, err := catalog.ParseMainCategory(g.MainCategory)
	if err != nil {
		main = catalog.Reply
	}
	sub, err := catalog.ParseSubCategory(g.SubCategory)
	if err != nil {
		sub = catalog.HighEQ
	}

	req := generator.Request{
		MainCategory: main,
		SubCategory:  sub,
		Count:        generator.CandidateCount,
		Context:      g.Context,
		StyleParams:  generator.StyleParams{Ambiguity: 2, EmojiDensity: "适中", Length: "中"},
		ConfigV2:     generator.ConfigV2{WordCount: "中", AggressionLevel: "中", AdultStyle: "无"},
	}
	if g.StyleParams != nil {
		req.StyleParams = *g.StyleParams
	}
	if g.ConfigV2 != nil {
		req.ConfigV2 = *g.ConfigV2
	}
	return req
}

// NewGenerateHandler returns the generation service's HTTP surface.
func NewGenerateHandler(svc *GenerationService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.HandleFunc("/generate", handleGenerate(svc))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleGenerate(svc *GenerationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
			return
		case http.MethodGet:
			writeJSON(w, http.StatusOK, generator.Response{Success: true, Message: aliveMessage})
			return
		case http.MethodPost:
		default:
			generateError(w, http.StatusMethodNotAllowed, "Method not allowed: "+r.Method)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var in generateRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			generateError(w, http.StatusBadRequest, "Invalid JSON input")
			return
		}

		cands, err := svc.Generate(r.Context(), in.toRequest())
		if err != nil {
			var ue *proxy.UpstreamError
			msg := fmt.Sprintf("AI 服务异常: %v", err)
			if errors.As(err, &ue) {
				msg = ue.Error()
			}
			slog.Warn("generation failed", "error", err)
			generateError(w, http.StatusInternalServerError, msg)
			return
		}
		writeJSON(w, http.StatusOK, generator.Response{Success: true, Candidates: cands})
	}
}

func generateError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, generator.Response{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
