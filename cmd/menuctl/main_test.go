package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
)

const itemsJSONL = `{"id":7,"name":"Biryani","price":120,"slots":["lunch"],"dietary_type":"non-vegetarian","spice_level":"high","cuisine_type":"north indian"}
{"id":9,"name":"Veg Pulao","price":90,"slots":["lunch"],"dietary_type":"vegetarian","spice_level":"medium","cuisine_type":"north indian"}
{"id":12,"name":"Idli","price":40,"slots":["breakfast"],"dietary_type":"vegetarian","spice_level":"low","cuisine_type":"south indian"}
{"id":20,"name":"Old Sandwich","available":false,"slots":["breakfast"]}
`

const feedbackJSONL = `{"employee_id":"a","food_item_id":7,"rating":5,"comment":"absolutely amazing","date":"2026-10-01"}
{"employee_id":"b","food_item_id":7,"rating":1,"comment":"terrible","date":"2026-10-01"}
{"employee_id":"a","food_item_id":12,"rating":1,"comment":"stale","date":"2026-10-02"}
{"employee_id":"b","food_item_id":12,"rating":2,"comment":"cold","date":"2026-10-02"}
{"employee_id":"c","food_item_id":99,"rating":3,"comment":"unknown item"}
`

type harness struct {
	t     *testing.T
	dir   string
	db    string
	clock *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		t:     t,
		dir:   dir,
		db:    filepath.Join(dir, "menu.db"),
		clock: clockwork.NewFakeClockAt(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)),
	}
}

func (h *harness) file(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	full := append([]string{"-db", h.db}, args...)
	err := run(context.Background(), full, &out, h.clock)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("menuctl %v: %v\n%s", args, err, out)
	}
	return out
}

func TestMenuctlLifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("-json", "import", "-items", h.file("items.jsonl", itemsJSONL), "-feedback", h.file("fb.jsonl", feedbackJSONL))
	var imported struct {
		Items    int `json:"items"`
		Feedback int `json:"feedback"`
		Skipped  int `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatalf("decode import output %q: %v", out, err)
	}
	if imported.Items != 4 || imported.Feedback != 4 || imported.Skipped != 1 {
		t.Errorf("import = %+v", imported)
	}

	out = h.mustRun("recommend", "-slot", "breakfast")
	if !strings.Contains(out, "Idli") || strings.Contains(out, "Old Sandwich") {
		t.Errorf("breakfast recommendations:\n%s", out)
	}

	out = h.mustRun("rollout", "-items", "7,9")
	if !strings.Contains(out, "Rolled out 2 items for 2026-10-17") {
		t.Errorf("rollout output: %s", out)
	}
	out = h.mustRun("rollout", "-items", "12")
	if !strings.Contains(out, "already rolled out") {
		t.Errorf("second rollout output: %s", out)
	}

	h.mustRun("vote", "-items", "7,7,9")
	out = h.mustRun("vote", "-employee", "e1", "-items", "9,9")
	if !strings.Contains(out, "9: counted") || !strings.Contains(out, "9: duplicate") {
		t.Errorf("vote output: %s", out)
	}

	out = h.mustRun("finalize")
	if !strings.Contains(out, "lunch") || !strings.Contains(out, "Biryani") || !strings.Contains(out, "votes 2") {
		t.Errorf("finalize output: %s", out)
	}
	out = h.mustRun("finalize")
	if !strings.Contains(out, "already finalized") {
		t.Errorf("second finalize output: %s", out)
	}

	out = h.mustRun("menu", "-final", "-day", "2026-10-17")
	if !strings.Contains(out, "Biryani") {
		t.Errorf("final menu: %s", out)
	}

	out = h.mustRun("curate")
	if !strings.Contains(out, "Flagged 1 item(s) for 2026-10") {
		t.Errorf("curate output: %s", out)
	}
	out = h.mustRun("curate")
	if !strings.Contains(out, "already generated") {
		t.Errorf("second curate output: %s", out)
	}
	out = h.mustRun("discards", "-period", "2026-10")
	if !strings.Contains(out, "rating 1.50") {
		t.Errorf("discards output: %s", out)
	}
}

func TestMenuctlPrefsAndPersonalMenu(t *testing.T) {
	h := newHarness(t)
	h.mustRun("import", "-items", h.file("items.jsonl", itemsJSONL))
	h.mustRun("rollout", "-items", "7,9")

	out := h.mustRun("prefs", "-employee", "e2", "-diet", "vegetarian", "-spice", "medium")
	if !strings.Contains(out, `diet="vegetarian"`) {
		t.Errorf("prefs output: %s", out)
	}

	// updating one field keeps the others
	out = h.mustRun("prefs", "-employee", "e2", "-cuisine", "north indian")
	if !strings.Contains(out, `spice="medium"`) || !strings.Contains(out, `cuisine="north indian"`) {
		t.Errorf("prefs update output: %s", out)
	}

	out = h.mustRun("menu", "-employee", "e2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "Veg Pulao") {
		t.Errorf("personal menu:\n%s", out)
	}
}

func TestMenuctlErrors(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run(); err == nil {
		t.Error("expected error without a command")
	}
	if _, err := h.run("explode"); err == nil {
		t.Error("expected error for unknown command")
	}
	if _, err := h.run("rollout", "-items", "seven"); err == nil {
		t.Error("expected error for bad ids")
	}
	if _, err := h.run("feedback", "-employee", "a", "-item", "7", "-rating", "9"); err == nil {
		t.Error("expected validation error for rating 9")
	}
	if _, err := h.run("recommend", "-slot", "brunch"); err == nil {
		t.Error("expected error for unknown slot")
	}
}

func TestMenuctlFeedbackHTMLFlag(t *testing.T) {
	h := newHarness(t)
	h.mustRun("import", "-items", h.file("items.jsonl", itemsJSONL))
	h.mustRun("feedback", "-employee", "a", "-item", "12", "-rating", "4", "-html", "-comment", "<p>really <b>tasty</b></p>")
	h.mustRun("feedback", "-employee", "b", "-item", "9", "-rating", "2", "-comment", "portion was tiny<and the rice was bad")

	out := h.mustRun("-json", "recommend")
	var recs []recommendation
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decode recommend output %q: %v", out, err)
	}
	summaries := map[int64]string{}
	for _, r := range recs {
		summaries[r.ItemID] = r.Summary
	}
	if got := summaries[12]; got != "really tasty" {
		t.Errorf("html comment summary = %q", got)
	}
	if got := summaries[9]; got != "portion was tiny<and the rice was bad" {
		t.Errorf("plain comment summary = %q", got)
	}
}

func TestMenuctlWritesMetricsTextfile(t *testing.T) {
	h := newHarness(t)
	prom := filepath.Join(h.dir, "cafeteria.prom")
	t.Setenv("CAFETERIA_METRICS_TEXTFILE", prom)

	h.mustRun("import", "-items", h.file("items.jsonl", itemsJSONL))
	h.mustRun("feedback", "-employee", "a", "-item", "9", "-rating", "4", "-comment", "really good")

	data, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "cafeteria_feedback_total 1") {
		t.Errorf("textfile:\n%s", data)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 7, 9,,12 ")
	if err != nil || len(ids) != 3 || ids[2] != 12 {
		t.Errorf("parseIDs = %v, %v", ids, err)
	}
	if _, err := parseIDs(""); err == nil {
		t.Error("expected error for empty list")
	}
}
