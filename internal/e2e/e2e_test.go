package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nlpd/internal/manager"
	"nlpd/internal/registry"
	"nlpd/internal/resultcache"
	"nlpd/pkg/types"
)

func TestE2E_Tasks_Infer_Status(t *testing.T) {
	srv, _ := newServer(t, manager.ManagerConfig{})

	resp, body := httpGet(t, srv.URL+"/v1/tasks")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/tasks status=%d", resp.StatusCode)
	}
	var tasks types.TasksResponse
	if err := json.Unmarshal(body, &tasks); err != nil || len(tasks.Tasks) != 3 {
		t.Fatalf("tasks=%+v err=%v", tasks, err)
	}

	for _, task := range []types.TaskID{types.TaskSentiment, types.TaskNER, types.TaskSummarization} {
		payload, _ := json.Marshal(types.RunTaskRequest{Task: task, Text: registry.Preset(task)})
		resp, body := httpPostJSON(t, srv.URL+"/v1/infer", string(payload))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: /v1/infer status=%d body=%s", task, resp.StatusCode, body)
		}
		var out types.InferResponse
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("%s: json: %v", task, err)
		}
		if out.Task != task || out.Output.Task != task {
			t.Fatalf("%s: task mismatch: %+v", task, out)
		}
		switch task {
		case types.TaskSentiment:
			if out.Verdict == nil || len(out.Triggers) == 0 {
				t.Fatalf("sentiment not decorated: %+v", out)
			}
		case types.TaskNER:
			var b strings.Builder
			for _, f := range out.Fragments {
				b.WriteString(f.Text)
			}
			if b.String() != registry.Preset(task) {
				t.Fatalf("fragments do not tile the text: %q", b.String())
			}
		case types.TaskSummarization:
			if out.Output.Summary == nil || out.Output.Summary.SummaryText == "" {
				t.Fatalf("empty summary: %+v", out.Output)
			}
		}
	}

	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	if st.LoadsTotal != 3 || st.RunsTotal != 3 || len(st.Pipelines) != 3 {
		t.Fatalf("status=%+v", st)
	}

	resp, body = httpGet(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "nlpd_worker_loads_total") {
		t.Fatalf("/metrics status=%d missing worker metrics", resp.StatusCode)
	}
}

func TestE2E_ResultCacheServesRepeat(t *testing.T) {
	log := zerolog.Nop()
	cache := resultcache.New(time.Minute, &log)
	srv, _ := newServer(t, manager.ManagerConfig{ResultCache: cache})

	payload := `{"task":"sentiment","text":"the best tool, great docs"}`
	var first, second types.InferResponse
	_, body := httpPostJSON(t, srv.URL+"/v1/infer", payload)
	_ = json.Unmarshal(body, &first)
	_, body = httpPostJSON(t, srv.URL+"/v1/infer", payload)
	_ = json.Unmarshal(body, &second)

	if first.Cached || first.Metrics == nil {
		t.Fatalf("first response should be fresh: %+v", first)
	}
	if !second.Cached || second.Metrics != nil {
		t.Fatalf("second response should be cached: %+v", second)
	}
	if s := cache.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("cache stats=%+v", s)
	}
}

func TestE2E_SessionFlow(t *testing.T) {
	srv, _ := newServer(t, manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/v1/sessions", `{}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, body)
	}
	var sess types.SessionResponse
	_ = json.Unmarshal(body, &sess)
	base := srv.URL + "/v1/sessions/" + sess.ID

	resp, body = httpPostJSON(t, base+"/run", `{"task":"ner","text":"Ada Lovelace met Charles Babbage in London."}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("run status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = httpGet(t, base+"/events")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status=%d", resp.StatusCode)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	var last types.AIState
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("events json: %v", err)
	}
	if last.Status != types.StatusReady || last.RunID != 1 || last.Result == nil {
		t.Fatalf("final state=%+v", last)
	}
	if len(last.Result.Entities) != 3 {
		t.Fatalf("entities=%+v", last.Result.Entities)
	}

	resp, body = httpPostJSON(t, base+"/reset", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status=%d", resp.StatusCode)
	}
	var st types.AIState
	_ = json.Unmarshal(body, &st)
	if st.Status != types.StatusIdle || st.Result != nil {
		t.Fatalf("reset state=%+v", st)
	}

	if resp := httpDelete(t, base); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
	if resp, _ := httpGet(t, base); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", resp.StatusCode)
	}
}

func TestE2E_SessionLimit429(t *testing.T) {
	srv, _ := newServer(t, manager.ManagerConfig{MaxSessions: 1})
	if resp, _ := httpPostJSON(t, srv.URL+"/v1/sessions", `{}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create status=%d", resp.StatusCode)
	}
	resp, body := httpPostJSON(t, srv.URL+"/v1/sessions", `{}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second create status=%d body=%s", resp.StatusCode, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Code != http.StatusTooManyRequests {
		t.Fatalf("error body=%s", body)
	}
}

func TestE2E_ValidationErrors(t *testing.T) {
	srv, _ := newServer(t, manager.ManagerConfig{})
	cases := []struct {
		path, body string
		want       int
	}{
		{"/v1/infer", `{"task":"sentiment","text":"   "}`, http.StatusBadRequest},
		{"/v1/infer", `{"task":"translate","text":"hi"}`, http.StatusBadRequest},
		{"/v1/detect", `{"text":""}`, http.StatusBadRequest},
		{"/v1/sessions/missing/run", `{"task":"ner","text":"x"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, body := httpPostJSON(t, srv.URL+tc.path, tc.body)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: status=%d want %d body=%s", tc.path, tc.body, resp.StatusCode, tc.want, body)
		}
	}
}
