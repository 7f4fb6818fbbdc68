package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/ineqdash/internal/ai"
	"github.com/KaramelBytes/ineqdash/internal/catalog"
)

const giniCSV = `Country Name,Country Code,Indicator Name,Indicator Code,2019,2020
Germany,DEU,Gini index,SI.POV.GINI,31.7,
Brazil,BRA,Gini index,SI.POV.GINI,53.5,48.9
`

const wiidCSV = `country,c3,year,q1,q2,q3,q4,q5,palma,ratio_top20bottom20
Norway,NOR,2015,9.5,14,17.5,22,37,1.6,3.9
`

type fakeRuntime struct {
	reply string
	calls int
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.calls++
	return &ai.GenerateResponse{Content: f.reply}, nil
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gini_data.csv"), []byte(giniCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wiid_quintiles.csv"), []byte(wiidCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.Quiet = true
	return NewServer(catalog.NewStore(catalog.Default(), dir), opts)
}

func get(t *testing.T, s *Server, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
		}
	}
	return rec.Code
}

func post(t *testing.T, s *Server, target, body string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	if code := get(t, s, "/healthz", nil); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}
}

func TestRecords(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp recordsResponse
	if code := get(t, s, "/api/datasets/gini/records?entity=Brazil&from=2019&to=2020", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Count != 2 || resp.Empty {
		t.Fatalf("expected 2 Brazil records, got %+v", resp)
	}
	if get(t, s, "/api/datasets/gini/records?entity=Germany&entity=Brazil&present=true", &resp); resp.Count != 3 {
		t.Fatalf("expected 3 present records, got %d", resp.Count)
	}
}

func TestRecordsEmptySelection(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp recordsResponse
	if code := get(t, s, "/api/datasets/gini/records?entity=", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if !resp.Empty || resp.Message != "No entities selected." || resp.Records == nil {
		t.Fatalf("unexpected empty response: %+v", resp)
	}
	get(t, s, "/api/datasets/gini/records?entity=Brazil&from=1990&to=2000", &resp)
	if !resp.Empty || !strings.Contains(resp.Message, "1990") {
		t.Fatalf("unexpected out-of-range response: %+v", resp)
	}
}

func TestRecordsErrors(t *testing.T) {
	s := newTestServer(t, Options{})
	var body errorBody
	if code := get(t, s, "/api/datasets/gini/records?from=2021&to=2019", &body); code != http.StatusBadRequest {
		t.Fatalf("inverted range: expected 400, got %d", code)
	}
	if code := get(t, s, "/api/datasets/gini/records?from=abc", &body); code != http.StatusBadRequest {
		t.Fatalf("bad year: expected 400, got %d", code)
	}
	if code := get(t, s, "/api/datasets/nope/records", &body); code != http.StatusNotFound || body.Dataset != "nope" {
		t.Fatalf("unknown dataset: expected 404, got %d %+v", code, body)
	}
	if code := get(t, s, "/api/datasets/poverty/records", &body); code != http.StatusInternalServerError {
		t.Fatalf("missing file: expected 500, got %d", code)
	}
}

func TestDeltas(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp struct {
		Cards []deltaCard `json:"cards"`
	}
	if code := get(t, s, "/api/datasets/gini/deltas?entity=Brazil&entity=Germany&from=2019&to=2020", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(resp.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(resp.Cards))
	}
	br := resp.Cards[0]
	if br.Entity != "Brazil" || br.Direction != "improved" || br.DeltaDisplay != "-4.60" || br.LastDisplay != "48.90" {
		t.Fatalf("unexpected Brazil card: %+v", br)
	}
	de := resp.Cards[1]
	if de.Direction != "unavailable" || de.DeltaDisplay != "n/a" {
		t.Fatalf("unexpected Germany card: %+v", de)
	}
}

func TestMap(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp struct {
		Year     int `json:"year"`
		WithData int `json:"with_data"`
		Cells    []struct {
			Code    string `json:"code"`
			HasData bool   `json:"has_data"`
		} `json:"cells"`
	}
	if code := get(t, s, "/api/datasets/gini/map?entity=Brazil&entity=Germany", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Year != 2020 || len(resp.Cells) != 2 || resp.WithData != 1 {
		t.Fatalf("unexpected map: %+v", resp)
	}
	// Unselected regions stay in the universe without data.
	get(t, s, "/api/datasets/gini/map?year=2019&entity=Germany", &resp)
	if len(resp.Cells) != 2 || resp.WithData != 1 {
		t.Fatalf("unexpected 2019 map: %+v", resp)
	}
}

func TestRatios(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp struct {
		Count int `json:"count"`
	}
	if code := get(t, s, "/api/ratios", &resp); code != http.StatusOK || resp.Count != 3 {
		t.Fatalf("expected 3 ratio records, got %d (%d)", resp.Count, code)
	}
	if get(t, s, "/api/ratios?ratio=palma", &resp); resp.Count != 1 {
		t.Fatalf("expected 1 palma record, got %d", resp.Count)
	}
	if code := get(t, s, "/api/ratios?ratio=gini", nil); code != http.StatusBadRequest {
		t.Fatalf("unknown ratio: expected 400, got %d", code)
	}
	if code := get(t, s, "/api/ratios?dataset=gini", nil); code != http.StatusBadRequest {
		t.Fatalf("wide dataset: expected 400, got %d", code)
	}
}

func TestReconcile(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp struct {
		Discrepancies []struct {
			Entity  string  `json:"entity"`
			Sourced float64 `json:"sourced"`
		} `json:"discrepancies"`
	}
	if code := get(t, s, "/api/ratios/reconcile", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	// 37/(9.5+14) = 1.574 against a sourced 1.6
	if len(resp.Discrepancies) != 1 || resp.Discrepancies[0].Sourced != 1.6 {
		t.Fatalf("unexpected discrepancies: %+v", resp.Discrepancies)
	}
	if get(t, s, "/api/ratios/reconcile?tolerance=0.05", &resp); len(resp.Discrepancies) != 0 {
		t.Fatalf("expected no discrepancies within 0.05")
	}
}

func TestAudit(t *testing.T) {
	s := newTestServer(t, Options{})
	var resp struct {
		Completeness struct {
			Rows    int `json:"rows"`
			Columns []struct {
				Name    string `json:"name"`
				Missing int    `json:"missing"`
			} `json:"columns"`
		} `json:"completeness"`
	}
	if code := get(t, s, "/api/datasets/gini/audit?source=raw", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Completeness.Rows != 2 || resp.Completeness.Columns[0].Name != "2020" || resp.Completeness.Columns[0].Missing != 1 {
		t.Fatalf("unexpected raw audit: %+v", resp.Completeness)
	}
}

func TestChatDisabled(t *testing.T) {
	s := newTestServer(t, Options{})
	if code := post(t, s, "/api/chat", `{"message":"hi"}`, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func TestChatConversation(t *testing.T) {
	rt := &fakeRuntime{reply: "Brazil's Gini fell between 2019 and 2020."}
	s := newTestServer(t, Options{Chat: rt})
	var first chatResponse
	if code := post(t, s, "/api/chat", `{"message":"How did Brazil change?","dataset":"gini"}`, &first); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if first.ConversationID == "" || first.Reply != rt.reply || len(first.Messages) != 3 {
		t.Fatalf("unexpected first reply: %+v", first)
	}
	var second chatResponse
	post(t, s, "/api/chat", `{"conversation_id":"`+first.ConversationID+`","message":"And Germany?"}`, &second)
	if second.ConversationID != first.ConversationID || len(second.Messages) != 5 {
		t.Fatalf("conversation not reused: %+v", second)
	}
	if code := post(t, s, "/api/chat", `{"conversation_id":"missing","message":"hi"}`, nil); code != http.StatusNotFound {
		t.Fatalf("unknown conversation: expected 404, got %d", code)
	}
	if code := post(t, s, "/api/chat", `{"message":"  "}`, nil); code != http.StatusBadRequest {
		t.Fatalf("blank message: expected 400, got %d", code)
	}
}

func TestDatasetsAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})
	var list []datasetSummary
	if code := get(t, s, "/api/datasets", &list); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	byName := map[string]datasetSummary{}
	for _, d := range list {
		byName[d.Name] = d
	}
	if g := byName["gini"]; !g.Loaded || g.Records != 4 || g.FirstYear != 2019 || g.LastYear != 2020 {
		t.Fatalf("unexpected gini summary: %+v", g)
	}
	if p := byName["poverty"]; p.Loaded || p.Error == "" {
		t.Fatalf("expected poverty to report its missing file: %+v", p)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "ineqdash_dataset_records_total") {
		t.Fatalf("metrics endpoint missing dataset gauge")
	}
}
