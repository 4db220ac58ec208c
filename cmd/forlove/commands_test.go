package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/fallback"
	"github.com/kalambet/forlove/internal/generator"
	"github.com/kalambet/forlove/internal/orchestrator"
	"github.com/kalambet/forlove/internal/slots"
	"github.com/kalambet/forlove/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func (ts *testServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}

var ctx = context.Background()

// --- api client ---

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /slots": `{}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/slots")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	reqs := ts.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", reqs[0].Auth)
	}
}

func TestIdentitySet_SendsFlatPatch(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /identity": `{"displayName":"阿杰"}`,
	})

	client := ts.client()
	resp, err := client.patch(ctx, "/identity", map[string]string{"identity.gender": "女"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := decodeJSON(resp, nil); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	reqs := ts.recorded()
	var sent map[string]string
	if err := json.Unmarshal([]byte(reqs[0].Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if sent["identity.gender"] != "女" {
		t.Errorf("body = %v, want identity.gender=女", sent)
	}
}

func TestSlotsActivate_SendsIDs(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PUT /slots/active": `{"configuration":{"allSlots":[],"activeSlotIds":[4,0]},"activeIndex":0}`,
	})

	resp, err := ts.client().put(ctx, "/slots/active", map[string]any{"ids": []int{4, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var view slotsView
	if err := decodeJSON(resp, &view); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if ids := view.Configuration.ActiveSlotIDs; len(ids) != 2 || ids[0] != 4 {
		t.Errorf("ActiveSlotIDs = %v, want [4 0]", ids)
	}
	if body := ts.recorded()[0].Body; body != `{"ids":[4,0]}` {
		t.Errorf("body = %s", body)
	}
}

func TestSlotsActivate_RejectsDuplicatesLocally(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"slots", "activate", "1", "1"})
	err := rootCmd.Execute()
	if !errors.Is(err, slots.ErrInvalidActiveSlots) {
		t.Errorf("err = %v, want ErrInvalidActiveSlots", err)
	}
}

func TestServerNotReachable(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/slots")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid or missing bearer token","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/identity")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	err = decodeJSON(resp, &struct{}{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if err.Error() != "server returned 401: invalid or missing bearer token" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAPIErrorMessage_RawBody(t *testing.T) {
	if got := apiErrorMessage([]byte(" plain failure \n")); got != "plain failure" {
		t.Errorf("apiErrorMessage = %q, want %q", got, "plain failure")
	}
}

// --- flags and output ---

func TestParseSlotIDs(t *testing.T) {
	ids, err := parseSlotIDs([]string{"2", "0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 0 {
		t.Errorf("ids = %v, want [2 0]", ids)
	}
	if _, err := parseSlotIDs([]string{"x"}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestSlotPatchFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	f := cmd.Flags()
	f.String("word-count", "", "")
	f.String("aggression", "", "")
	f.String("adult", "", "")
	f.Int("ambiguity", -1, "")
	f.String("emoji", "", "")
	f.String("length", "", "")
	f.Bool("reset-style", false, "")
	f.Bool("enable", false, "")
	f.Bool("disable", false, "")

	if err := f.Parse([]string{"--word-count", "few", "--ambiguity", "4", "--disable"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	patch := slotPatchFromFlags(cmd)
	if patch["wordCount"] != "few" {
		t.Errorf("wordCount = %v, want few", patch["wordCount"])
	}
	if _, ok := patch["aggressionLevel"]; ok {
		t.Error("aggressionLevel should be absent when the flag is unset")
	}
	style, ok := patch["customStyleParams"].(map[string]any)
	if !ok || style["ambiguity"] != 4 {
		t.Errorf("customStyleParams = %v, want ambiguity 4", patch["customStyleParams"])
	}
	if patch["isEnabled"] != false {
		t.Errorf("isEnabled = %v, want false", patch["isEnabled"])
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestOutcomeSummary(t *testing.T) {
	tests := []struct {
		counts map[string]int
		want   string
	}{
		{nil, "none"},
		{map[string]int{"succeeded": 12, "fallback": 3}, "12 succeeded, 3 fallback"},
		{map[string]int{"fallback": 1}, "1 fallback"},
	}
	for _, tt := range tests {
		if got := outcomeSummary(tt.counts); got != tt.want {
			t.Errorf("outcomeSummary(%v) = %q, want %q", tt.counts, got, tt.want)
		}
	}
}

// --- generate ---

const threeWire = `{"success":true,"candidates":[{"text":"第一句","tone":"高情商"},{"text":"第二句"},{"text":"第三句"}]}`

func newGenerateEnv(t *testing.T, endpoint string) generateEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return generateEnv{
		Store:       store,
		Endpoint:    endpoint,
		Timeout:     5 * time.Second,
		MinInterval: time.Second,
		FullAccess:  true,
	}
}

func generateServer(t *testing.T, status int, body string) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b bytes.Buffer
		b.ReadFrom(r.Body)
		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: b.String(), Auth: r.Header.Get("Authorization")})
		ts.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func noOpts() generateOptions {
	return generateOptions{SlotID: -1, SubIndex: -1}
}

func TestRunGenerate_InsertsPrimary(t *testing.T) {
	ts := generateServer(t, http.StatusOK, threeWire)
	env := newGenerateEnv(t, ts.server.URL+"/generate")
	env.Token = "tok"

	opts := noOpts()
	opts.Content = "在吗"
	var out bytes.Buffer
	if err := runGenerate(ctx, env, opts, &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	if out.String() != "第一句\n" {
		t.Errorf("output = %q, want %q", out.String(), "第一句\n")
	}

	reqs := ts.recorded()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].Auth != "Bearer tok" {
		t.Errorf("auth = %q, want Bearer tok", reqs[0].Auth)
	}
	var sent generator.Request
	if err := json.Unmarshal([]byte(reqs[0].Body), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent.MainCategory != catalog.Reply || sent.Context.LastMessage != "在吗" {
		t.Errorf("request = %s/%q, want reply/在吗", sent.MainCategory, sent.Context.LastMessage)
	}

	gens, err := env.Store.RecentGenerations(10)
	if err != nil {
		t.Fatalf("RecentGenerations: %v", err)
	}
	if len(gens) != 1 || gens[0].Outcome != string(orchestrator.Succeeded) {
		t.Errorf("generations = %+v, want one succeeded", gens)
	}
	hist, err := env.Store.RecentHistory(10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(hist) != 1 || hist[0].Text != "第一句" {
		t.Errorf("history = %+v, want the primary", hist)
	}
}

func TestRunGenerate_CycleAndCommit(t *testing.T) {
	ts := generateServer(t, http.StatusOK, threeWire)
	env := newGenerateEnv(t, ts.server.URL)

	opts := noOpts()
	opts.Content = "周末有空吗"
	opts.Cycle = 1
	opts.CommitAlternate = true
	var out bytes.Buffer
	if err := runGenerate(ctx, env, opts, &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	if out.String() != "第三句\n" {
		t.Errorf("output = %q, want %q", out.String(), "第三句\n")
	}

	hist, err := env.Store.RecentHistory(10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(hist) != 2 || hist[0].Text != "第三句" {
		t.Errorf("history = %+v, want committed alternate newest", hist)
	}
}

func TestRunGenerate_FallbackOnServerError(t *testing.T) {
	ts := generateServer(t, http.StatusInternalServerError, `{"success":false,"error":"boom"}`)
	env := newGenerateEnv(t, ts.server.URL)

	opts := noOpts()
	opts.Content = "在吗"
	var out bytes.Buffer
	if err := runGenerate(ctx, env, opts, &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	want := fallback.Texts(catalog.Reply, "在吗")[0] + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	gens, _ := env.Store.RecentGenerations(10)
	if len(gens) != 1 || gens[0].Outcome != string(orchestrator.Fallback) || gens[0].Reason != string(orchestrator.NetworkError) {
		t.Errorf("generations = %+v, want one fallback/networkError", gens)
	}
}

func TestRunGenerate_PolishSlotSendsRawText(t *testing.T) {
	ts := generateServer(t, http.StatusOK, threeWire)
	env := newGenerateEnv(t, ts.server.URL)

	opts := noOpts()
	opts.Content = "今天好累"
	opts.SlotID = 2
	if err := runGenerate(ctx, env, opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	var sent generator.Request
	if err := json.Unmarshal([]byte(ts.recorded()[0].Body), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent.MainCategory != catalog.Polish || sent.Context.RawText != "今天好累" || sent.Context.LastMessage != "" {
		t.Errorf("request = %+v, want polish with raw_text", sent)
	}
}

func TestRunGenerate_PermissionDenied(t *testing.T) {
	ts := generateServer(t, http.StatusOK, threeWire)
	env := newGenerateEnv(t, ts.server.URL)
	env.FullAccess = false

	err := runGenerate(ctx, env, noOpts(), &bytes.Buffer{})
	if !errors.Is(err, orchestrator.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
	if n := len(ts.recorded()); n != 0 {
		t.Errorf("requests = %d, want none", n)
	}
}

func TestRunGenerate_Refresh(t *testing.T) {
	ts := generateServer(t, http.StatusOK, threeWire)
	env := newGenerateEnv(t, ts.server.URL)

	refresh := noOpts()
	refresh.Refresh = true
	if err := runGenerate(ctx, env, refresh, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error refreshing before any generate")
	}

	opts := noOpts()
	opts.Content = "晚安"
	if err := runGenerate(ctx, env, opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	if err := runGenerate(ctx, env, refresh, &bytes.Buffer{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	reqs := ts.recorded()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	var sent generator.Request
	if err := json.Unmarshal([]byte(reqs[1].Body), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent.Context.LastMessage != "晚安" {
		t.Errorf("refresh last_message = %q, want 晚安", sent.Context.LastMessage)
	}
}

func TestRunGenerate_UnknownSlot(t *testing.T) {
	env := newGenerateEnv(t, "http://127.0.0.1:1")
	opts := noOpts()
	opts.SlotID = 7
	if err := runGenerate(ctx, env, opts, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown slot")
	}
}
