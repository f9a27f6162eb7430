// Package hfapi implements worker.Provider on top of a Hugging Face style
// hub and a hosted inference endpoint.
//
// Load resolves the model on the hub and, when a cache directory is
// configured, mirrors its ONNX weights and tokenizer files locally while
// reporting byte progress. Invoke posts the text to the inference endpoint.
package hfapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"nlpd/internal/common/fsutil"
	"nlpd/internal/worker"
)

const (
	DefaultHubURL   = "https://huggingface.co"
	DefaultEndpoint = "https://api-inference.huggingface.co"
	defaultTimeout  = 60 * time.Second
)

// ErrModelNotFound is returned by Load when the hub does not know the model.
var ErrModelNotFound = errors.New("model not found on hub")

// Options configures a Provider.
type Options struct {
	Endpoint string
	HubURL   string
	Token    string
	// CacheDir enables artifact mirroring; "~" is expanded.
	CacheDir string
	Timeout  time.Duration
	Logger   *zerolog.Logger
}

// Provider implements worker.Provider.
type Provider struct {
	hub      *resty.Client
	infer    *resty.Client
	cacheDir string
	log      zerolog.Logger
}

// New builds a Provider. Empty URLs fall back to the public defaults.
func New(opts Options) (*Provider, error) {
	if opts.HubURL == "" {
		opts.HubURL = DefaultHubURL
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	dir, err := fsutil.ExpandHome(opts.CacheDir)
	if err != nil {
		return nil, worker.ErrConfiguration("hfapi cache dir: %v", err)
	}
	p := &Provider{
		hub:      newClient(opts.HubURL, opts.Token, opts.Timeout),
		infer:    newClient(opts.Endpoint, opts.Token, opts.Timeout),
		cacheDir: dir,
		log:      zerolog.Nop(),
	}
	if opts.Logger != nil {
		p.log = *opts.Logger
	}
	return p, nil
}

func newClient(base, token string, timeout time.Duration) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "nlpd")
	if token != "" {
		c.SetAuthToken(token)
	}
	return c
}

type modelInfo struct {
	ID          string `json:"id"`
	PipelineTag string `json:"pipeline_tag"`
	Siblings    []struct {
		Name string `json:"rfilename"`
	} `json:"siblings"`
}

func (m modelInfo) has(file string) bool {
	// some mirrors omit the file listing
	if len(m.Siblings) == 0 {
		return true
	}
	for _, s := range m.Siblings {
		if s.Name == file {
			return true
		}
	}
	return false
}

type apiError struct {
	Error string `json:"error"`
}

func errorMessage(res *resty.Response) string {
	if e, ok := res.Error().(*apiError); ok && e.Error != "" {
		return e.Error
	}
	var e apiError
	if json.Unmarshal(res.Body(), &e) == nil && e.Error != "" {
		return e.Error
	}
	return res.Status()
}

// compatibleTag reports whether the hub's pipeline tag can serve kind.
func compatibleTag(kind, tag string) bool {
	if tag == "" || tag == kind {
		return true
	}
	switch kind {
	case "sentiment-analysis", "text-classification":
		return tag == "text-classification" || tag == "sentiment-analysis"
	case "token-classification", "ner":
		return tag == "token-classification" || tag == "ner"
	}
	return false
}

// Artifacts returns the repo files mirrored for a model.
func Artifacts(quantized bool) []string {
	weights := "onnx/model.onnx"
	if quantized {
		weights = "onnx/model_quantized.onnx"
	}
	return []string{"config.json", "tokenizer.json", weights}
}

// Load resolves modelRef on the hub and mirrors its artifacts.
func (p *Provider) Load(ctx context.Context, kind, modelRef string, opts worker.LoadOptions) (worker.Pipeline, error) {
	var info modelInfo
	res, err := p.hub.R().
		SetContext(ctx).
		SetResult(&info).
		SetError(&apiError{}).
		Get("/api/models/" + modelRef)
	if err != nil {
		return nil, fmt.Errorf("hub lookup %s: %w", modelRef, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelRef)
	}
	if res.IsError() {
		return nil, fmt.Errorf("hub lookup %s: %s", modelRef, errorMessage(res))
	}
	if !compatibleTag(kind, info.PipelineTag) {
		return nil, fmt.Errorf("model %s is a %s model, not %s", modelRef, info.PipelineTag, kind)
	}
	if p.cacheDir != "" {
		for _, file := range Artifacts(opts.Quantized) {
			if !info.has(file) {
				continue
			}
			if err := p.fetch(ctx, modelRef, file, opts.OnProgress); err != nil {
				return nil, err
			}
		}
	}
	p.log.Debug().Str("event", "hub_resolved").Str("model", modelRef).Str("pipeline_tag", info.PipelineTag).Msg("hfapi")
	return &pipeline{infer: p.infer, kind: kind, modelRef: modelRef}, nil
}

func (p *Provider) fetch(ctx context.Context, modelRef, file string, onProgress func(worker.ProgressEvent)) error {
	dst, err := fsutil.ArtifactPath(p.cacheDir, modelRef, file)
	if err != nil {
		return err
	}
	emit := func(ev worker.ProgressEvent) {
		if onProgress != nil {
			ev.File = file
			onProgress(ev)
		}
	}
	if size, ok := fsutil.FileSize(dst); ok {
		emit(worker.ProgressEvent{Status: "progress", Progress: 100, Loaded: size, Total: size})
		emit(worker.ProgressEvent{Status: "done", Progress: 100, Loaded: size, Total: size})
		return nil
	}

	emit(worker.ProgressEvent{Status: "initiate"})
	res, err := p.hub.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/" + modelRef + "/resolve/main/" + file)
	if err != nil {
		return fmt.Errorf("download %s: %w", file, err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return fmt.Errorf("download %s: %s", file, res.Status())
	}

	total := res.RawResponse.ContentLength
	pr := &progressReader{r: body, total: total, report: func(loaded int64) {
		emit(worker.ProgressEvent{Status: "progress", Progress: percent(loaded, total), Loaded: loaded, Total: total})
	}}
	n, err := fsutil.WriteFileAtomic(dst, pr)
	if err != nil {
		return fmt.Errorf("download %s: %w", file, err)
	}
	emit(worker.ProgressEvent{Status: "done", Progress: 100, Loaded: n, Total: n})
	p.log.Debug().Str("event", "artifact_cached").Str("model", modelRef).Str("file", file).Int64("bytes", n).Msg("hfapi")
	return nil
}

func percent(loaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return min(100, float64(loaded)*100/float64(total))
}

// progressReader reports the running byte count at most once per
// reportEvery bytes, plus once at EOF.
type progressReader struct {
	r        io.Reader
	total    int64
	loaded   int64
	reported int64
	report   func(int64)
}

const reportEvery = 256 << 10

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.loaded += int64(n)
	if pr.loaded-pr.reported >= reportEvery || (err == io.EOF && pr.loaded != pr.reported) {
		pr.reported = pr.loaded
		pr.report(pr.loaded)
	}
	return n, err
}

type pipeline struct {
	infer    *resty.Client
	kind     string
	modelRef string
}

type invokeRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// parameters maps worker options to endpoint parameter names; zero values
// are left to the endpoint's defaults.
func parameters(o worker.InvokeOptions) map[string]any {
	m := map[string]any{}
	if o.AggregationStrategy != "" {
		m["aggregation_strategy"] = o.AggregationStrategy
	}
	if o.TopK > 0 {
		m["top_k"] = o.TopK
	}
	if o.MaxNewTokens > 0 {
		m["max_new_tokens"] = o.MaxNewTokens
		m["do_sample"] = o.DoSample
	}
	if o.MinNewTokens > 0 {
		m["min_new_tokens"] = o.MinNewTokens
	}
	if o.NumBeams > 0 {
		m["num_beams"] = o.NumBeams
	}
	if o.LengthPenalty != 0 {
		m["length_penalty"] = o.LengthPenalty
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Invoke returns the endpoint's JSON body untouched; the worker validates
// its shape.
func (pl *pipeline) Invoke(ctx context.Context, text string, opts worker.InvokeOptions) (any, error) {
	res, err := pl.infer.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(invokeRequest{Inputs: text, Parameters: parameters(opts)}).
		SetError(&apiError{}).
		Post("/models/" + pl.modelRef)
	if err != nil {
		return nil, fmt.Errorf("inference %s: %w", pl.modelRef, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("inference %s: %s", pl.modelRef, errorMessage(res))
	}
	if !json.Valid(res.Body()) {
		return nil, fmt.Errorf("inference %s: response is not JSON", pl.modelRef)
	}
	return json.RawMessage(res.Body()), nil
}

func (pl *pipeline) Close() error { return nil }
